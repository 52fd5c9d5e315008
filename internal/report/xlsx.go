package report

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/randunun/bom-pricer/internal/model"
)

// WriteXLSX renders the full export as a single-sheet workbook. Numeric
// columns are written as numbers so spreadsheet formulas work on them.
func WriteXLSX(w io.Writer, result *model.Result) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("BOM Pricing")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range fullHeader {
		header.AddCell().Value = h
	}

	for _, item := range result.Items {
		row := sheet.AddRow()
		row.AddCell().Value = item.BOM.Raw
		row.AddCell().SetInt(item.BOM.Quantity)
		row.AddCell().Value = string(item.Status)
		row.AddCell().Value = item.BOM.SpecKey

		if c := item.Selected; c != nil {
			row.AddCell().Value = c.Brand
			row.AddCell().Value = c.DisplayLabel
			row.AddCell().SetInt(c.PackQty)
			addMoney(row, c.PackPriceUSD)
			addMoney(row, item.UnitPriceUSD)
			addMoney(row, item.TotalPriceUSD)
			row.AddCell().Value = c.LocalCurrency
			addMoney(row, c.FXRate)
			row.AddCell().Value = c.Seller
			row.AddCell().SetFloat(c.Confidence)
			row.AddCell().SetFloat(c.Feedback)
			row.AddCell().SetFloat(c.Trust)
			row.AddCell().SetFloat(c.FinalScore)
			row.AddCell().Value = string(c.Risk)
			row.AddCell().Value = c.ProductURL
		} else {
			for i := 0; i < 14; i++ {
				row.AddCell()
			}
			row.AddCell().Value = item.SearchURL
		}
	}

	summary := sheet.AddRow()
	summary.AddCell().Value = "Total"
	summary.AddCell()
	summary.AddCell()
	summary.AddCell()
	summary.AddCell()
	summary.AddCell()
	summary.AddCell()
	summary.AddCell()
	summary.AddCell()
	summary.AddCell().SetFloat(result.TotalUSD)

	return eris.Wrap(file.Write(w), "report: write workbook")
}

func addMoney(row *xlsx.Row, v *float64) {
	if v == nil {
		row.AddCell()
		return
	}
	row.AddCell().SetFloat(*v)
}
