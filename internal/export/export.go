// Package export renders stored extraction results as an XLSX workbook.
package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/mietwerk/leasescan/internal/model"
)

var summaryHeader = []string{
	"ID", "Filename", "Uploaded At", "Status", "Tenants",
	"Street", "House No.", "Zip", "City",
	"Cold Rent (EUR)", "Warm Rent (EUR)", "Deposit (EUR)",
	"Increase Type", "Contract Start", "Contract End", "Active",
	"Overall Score", "Tier", "Processing (ms)", "Error",
}

var issuesHeader = []string{"ID", "Filename", "Kind", "Message"}

// WriteXLSX writes the results as a workbook with an "Extractions" summary
// sheet and an "Issues" sheet listing every validation error and warning.
func WriteXLSX(w io.Writer, results []model.ExtractionResult) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Extractions")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	issues, err := f.AddSheet("Issues")
	if err != nil {
		return eris.Wrap(err, "export: add issues sheet")
	}

	addStringRow(summary, summaryHeader)
	addStringRow(issues, issuesHeader)

	for i := range results {
		r := &results[i]
		writeSummaryRow(summary, r)
		writeIssueRows(issues, r)
	}

	return eris.Wrap(f.Write(w), "export: write workbook")
}

func writeSummaryRow(sheet *xlsx.Sheet, r *model.ExtractionResult) {
	row := sheet.AddRow()
	row.AddCell().SetString(r.ID)
	row.AddCell().SetString(r.Filename)
	row.AddCell().SetString(r.UploadedAt.UTC().Format("2006-01-02 15:04:05"))
	row.AddCell().SetString(string(r.Status))

	e := r.Extraction
	if e == nil {
		e = &model.LeaseExtraction{}
	}
	row.AddCell().SetString(e.TenantNames())
	row.AddCell().SetString(e.Address.Street)
	row.AddCell().SetString(e.Address.HouseNumber)
	row.AddCell().SetString(e.Address.ZipCode)
	row.AddCell().SetString(e.Address.City)
	row.AddCell().SetString(decString(e.ColdRent))
	row.AddCell().SetString(decString(e.WarmRent))
	row.AddCell().SetString(decString(e.DepositAmount))
	row.AddCell().SetString(string(e.RentIncreaseType))
	row.AddCell().SetString(dateString(e.ContractStartDate))
	row.AddCell().SetString(dateString(e.ContractEndDate))
	if r.Extraction != nil {
		row.AddCell().SetBool(e.IsActive)
	} else {
		row.AddCell().SetString("")
	}

	if r.Quality != nil {
		row.AddCell().SetFloatWithFormat(r.Quality.OverallScore, "0.0")
		row.AddCell().SetString(string(r.Quality.Tier))
	} else {
		row.AddCell().SetString("")
		row.AddCell().SetString("")
	}
	row.AddCell().SetInt64(r.ProcessingMS)
	row.AddCell().SetString(r.ErrorMessage)
}

func writeIssueRows(sheet *xlsx.Sheet, r *model.ExtractionResult) {
	if r.Quality == nil {
		return
	}
	for _, msg := range r.Quality.ValidationErrors {
		addStringRow(sheet, []string{r.ID, r.Filename, "error", msg})
	}
	for _, msg := range r.Quality.Warnings {
		addStringRow(sheet, []string{r.ID, r.Filename, "warning", msg})
	}
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func decString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func dateString(d *model.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
