// Package report renders pricing results to CSV and XLSX for spreadsheet
// import.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/randunun/bom-pricer/internal/model"
)

// utf8BOM makes Excel detect UTF-8 instead of falling back to the locale
// codepage.
const utf8BOM = "\uFEFF"

// fullHeader is the detailed export consumed by the web UI.
var fullHeader = []string{
	"Description", "Quantity", "Status", "Canonical Key", "Brand", "Model",
	"Pack Qty", "Pack Price (USD)", "Unit Price (USD)", "Total Price (USD)",
	"Currency", "FX Rate", "Supplier", "Confidence", "Feedback", "Trust",
	"Final Score", "Risk", "Product URL",
}

// legacyHeader matches the original eight-column export some downstream
// sheets still expect.
var legacyHeader = []string{
	"Description", "Quantity", "Unit Price (USD)", "Total Price (USD)",
	"Supplier", "Confidence", "Reasoning", "Product URL",
}

// WriteCSV renders the full export with a UTF-8 BOM and CRLF line endings.
func WriteCSV(w io.Writer, result *model.Result) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return eris.Wrap(err, "report: write BOM")
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(fullHeader); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	for _, item := range result.Items {
		if err := cw.Write(fullRow(item)); err != nil {
			return eris.Wrap(err, "report: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush")
}

// WriteLegacyCSV renders the eight-column export.
func WriteLegacyCSV(w io.Writer, result *model.Result) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return eris.Wrap(err, "report: write BOM")
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(legacyHeader); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	for _, item := range result.Items {
		if err := cw.Write(legacyRow(item)); err != nil {
			return eris.Wrap(err, "report: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush")
}

func fullRow(item model.PricedLine) []string {
	row := []string{
		item.BOM.Raw,
		strconv.Itoa(item.BOM.Quantity),
		string(item.Status),
		item.BOM.SpecKey,
	}

	if c := item.Selected; c != nil {
		row = append(row,
			c.Brand,
			c.DisplayLabel,
			strconv.Itoa(c.PackQty),
			money(c.PackPriceUSD),
			money(item.UnitPriceUSD),
			money(item.TotalPriceUSD),
			c.LocalCurrency,
			rate(c.FXRate),
			c.Seller,
			score(c.Confidence),
			score(c.Feedback),
			score(c.Trust),
			score(c.FinalScore),
			string(c.Risk),
			c.ProductURL,
		)
	} else {
		link := item.SearchURL
		row = append(row, "", "", "", "", "", "", "", "", "", "", "", "", "", "", link)
	}
	return row
}

func legacyRow(item model.PricedLine) []string {
	supplier, productURL := "", ""
	confidence := ""
	if c := item.Selected; c != nil {
		supplier = c.Seller
		productURL = c.ProductURL
		confidence = score(c.Confidence)
	} else if item.SearchURL != "" {
		productURL = item.SearchURL
	}

	return []string{
		item.BOM.Raw,
		strconv.Itoa(item.BOM.Quantity),
		money(item.UnitPriceUSD),
		money(item.TotalPriceUSD),
		supplier,
		confidence,
		reasoning(item),
		productURL,
	}
}

// reasoning is the legacy export's Reasoning column: prose for matched
// lines, the bare status string for everything else.
func reasoning(item model.PricedLine) string {
	if item.Status == model.StatusMatched {
		c := item.Selected
		return fmt.Sprintf("Matched %s to %s %s (score %.2f, %s risk)",
			item.BOM.SpecKey, c.Brand, c.DisplayLabel, c.FinalScore, c.Risk)
	}
	return string(item.Status)
}

func money(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func rate(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
