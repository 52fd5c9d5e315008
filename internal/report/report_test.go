package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/randunun/bom-pricer/internal/model"
)

func fp(v float64) *float64 { return &v }

func testResult() *model.Result {
	matched := model.PricedLine{
		BOM: model.BOMLine{
			Raw:      `30A ESC "OPTO", X2`,
			Quantity: 2,
			Type:     model.TypeESC,
			SpecKey:  "ESC:30A",
		},
		Status: model.StatusMatched,
		Selected: &model.RankedCandidate{
			Brand:         "HobbyFans",
			DisplayLabel:  "4Pcs 30A",
			PackQty:       4,
			PackPriceUSD:  fp(20),
			LocalCurrency: "LKR",
			FXRate:        fp(0.003125),
			Seller:        "AceStore",
			Confidence:    0.85,
			Feedback:      0.74,
			Trust:         0.5,
			FinalScore:    0.83,
			Risk:          model.RiskLow,
			ProductURL:    "https://example.com/item/1",
		},
		UnitPriceUSD:  fp(5),
		TotalPriceUSD: fp(10),
	}
	pending := model.PricedLine{
		BOM: model.BOMLine{
			Raw:      "99A ESC",
			Quantity: 1,
			Type:     model.TypeESC,
			SpecKey:  "ESC:99A",
		},
		Status:    model.StatusPendingCrawl,
		SearchURL: "https://www.aliexpress.com/wholesale?SearchText=99A%20ESC",
	}
	invalid := model.PricedLine{
		BOM:    model.BOMLine{Raw: "DUCT TAPE", Quantity: 1},
		Status: model.StatusInvalidLine,
	}

	return &model.Result{
		Currency:    "USD",
		GeneratedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Items:       []model.PricedLine{matched, pending, invalid},
		TotalUSD:    10,
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testResult()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "\uFEFF"), "missing UTF-8 BOM")
	assert.Contains(t, out, "\r\n")

	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\r\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.TrimPrefix(lines[0], "\uFEFF"),
		strings.Join(fullHeader, ","))

	// embedded quotes double per RFC 4180
	assert.Contains(t, lines[1], `"30A ESC ""OPTO"", X2"`)
	assert.Contains(t, lines[1], "MATCHED")
	assert.Contains(t, lines[1], "ESC:30A")
	assert.Contains(t, lines[1], "5.00")
	assert.Contains(t, lines[1], "10.00")
	assert.Contains(t, lines[1], "0.003125")
	assert.Contains(t, lines[1], "LOW")

	// unmatched rows keep their manual search link in the URL column
	assert.Contains(t, lines[2], "PENDING_CRAWL")
	assert.Contains(t, lines[2], "SearchText=99A%20ESC")

	assert.Contains(t, lines[3], "INVALID_LINE")
}

func TestWriteLegacyCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLegacyCSV(&buf, testResult()))
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\r\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.TrimPrefix(lines[0], "\uFEFF"),
		strings.Join(legacyHeader, ","))

	assert.Contains(t, lines[1], "AceStore")
	assert.Contains(t, lines[1], "Matched ESC:30A to HobbyFans 4Pcs 30A")
	assert.Contains(t, lines[2], "PENDING_CRAWL")
	assert.Contains(t, lines[3], "INVALID_LINE")
}

func TestWriteCSV_ColumnCountsStable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testResult()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	for i, line := range lines {
		// commas inside the quoted description field are not separators
		if i == 1 {
			continue
		}
		assert.Equal(t, len(fullHeader)-1, strings.Count(line, ","), "line %d", i)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, testResult()))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, "BOM Pricing", sheet.Name)
	// header + 3 items + total row
	require.Len(t, sheet.Rows, 5)

	assert.Equal(t, "Description", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, `30A ESC "OPTO", X2`, sheet.Rows[1].Cells[0].Value)
	assert.Equal(t, "MATCHED", sheet.Rows[1].Cells[2].Value)

	unit, err := sheet.Rows[1].Cells[8].Float()
	require.NoError(t, err)
	assert.Equal(t, 5.0, unit)

	total, err := sheet.Rows[4].Cells[9].Float()
	require.NoError(t, err)
	assert.Equal(t, 10.0, total)
}
