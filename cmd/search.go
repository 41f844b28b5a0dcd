package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/model"
)

var searchFlags struct {
	userID     string
	industries []string
	locations  []string
	titles     []string
	seniority  []string
	employees  []string
	maxResults int
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one prospecting search from the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchFlags.userID == "" {
			return eris.New("--user-id is required")
		}

		env, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Pipeline == nil {
			return eris.New("search requires PROSPECTOR_APOLLO_API_KEY")
		}

		result, err := env.Pipeline.Run(cmd.Context(), model.SearchRequest{
			UserID: searchFlags.userID,
			Filters: model.SearchFilters{
				IndustryKeywords: searchFlags.industries,
				CompanyLocations: searchFlags.locations,
				Titles:           searchFlags.titles,
				Seniorities:      searchFlags.seniority,
				EmployeeRanges:   searchFlags.employees,
			},
			MaxResults: searchFlags.maxResults,
		})
		if err != nil {
			return err
		}

		zap.L().Info("search complete",
			zap.String("batch_run_id", result.BatchRunID),
			zap.Int("leads", len(result.Leads)),
		)
		fmt.Printf("batch %s: %d leads\n", result.BatchRunID, len(result.Leads))
		for _, l := range result.Leads {
			fmt.Printf("  %s\t%s\t%s\n", l.Name, l.Title, l.OrganizationName)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchFlags.userID, "user-id", "", "checkpoint owner id (required)")
	searchCmd.Flags().StringSliceVar(&searchFlags.industries, "industry", nil, "industry keyword filters")
	searchCmd.Flags().StringSliceVar(&searchFlags.locations, "location", nil, "company location filters")
	searchCmd.Flags().StringSliceVar(&searchFlags.titles, "title", nil, "person title filters")
	searchCmd.Flags().StringSliceVar(&searchFlags.seniority, "seniority", nil, "person seniority filters")
	searchCmd.Flags().StringSliceVar(&searchFlags.employees, "employees", nil, "employee range filters, e.g. 11,50")
	searchCmd.Flags().IntVar(&searchFlags.maxResults, "max-results", 0, "result cap (default from config)")
	rootCmd.AddCommand(searchCmd)
}
