// Package export writes lead batches to spreadsheet files.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospector/internal/model"
)

var leadHeader = []string{"ID", "Name", "Email", "Title", "Organization", "LinkedIn URL", "Batch Run", "Updated At"}

// WriteLeadsXLSX writes leads to an .xlsx workbook at path, one row per
// lead with a header row.
func WriteLeadsXLSX(path string, leads []model.Lead) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range leadHeader {
		header.AddCell().SetString(h)
	}

	for _, l := range leads {
		row := sheet.AddRow()
		row.AddCell().SetString(l.ID)
		row.AddCell().SetString(l.Name)
		row.AddCell().SetString(l.Email)
		row.AddCell().SetString(l.Title)
		row.AddCell().SetString(l.OrganizationName)
		row.AddCell().SetString(l.LinkedInURL)
		row.AddCell().SetString(l.BatchRunID)
		row.AddCell().SetString(l.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
