package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/export"
	"github.com/sells-group/prospector/internal/store"
)

var exportFlags struct {
	batchRunID string
	out        string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a lead batch to an .xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportFlags.batchRunID == "" {
			return eris.New("--batch is required")
		}

		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.LeadsByBatch(cmd.Context(), exportFlags.batchRunID)
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			return eris.Errorf("no leads found for batch %s", exportFlags.batchRunID)
		}

		if err := export.WriteLeadsXLSX(exportFlags.out, leads); err != nil {
			return err
		}
		zap.L().Info("export written",
			zap.String("batch_run_id", exportFlags.batchRunID),
			zap.String("path", exportFlags.out),
			zap.Int("leads", len(leads)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.batchRunID, "batch", "", "batch run id to export (required)")
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "leads.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}
