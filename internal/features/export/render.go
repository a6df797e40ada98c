package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-reporting/internal/features/execution"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"
)

// documentPageRows is how many data rows fit on one page of the plain-text
// rendering before a page break is emitted.
const documentPageRows = 40

// xlsxDocTimestamp pins the workbook's created/modified properties. excelize
// stamps them with the wall clock, which would make re-rendering the same
// snapshot produce different bytes.
const xlsxDocTimestamp = "2000-01-01T00:00:00Z"

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func renderCSV(snap *execution.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(snap.Columns); err != nil {
		return nil, err
	}
	record := make([]string, len(snap.Columns))
	for _, row := range snap.Rows {
		for i := range snap.Columns {
			record[i] = cellString(row[i])
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(snap *execution.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetDocProps(&excelize.DocProperties{
		Created:  xlsxDocTimestamp,
		Modified: xlsxDocTimestamp,
	}); err != nil {
		return nil, err
	}

	sheetName := "Report"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range snap.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range snap.Rows {
		for colIdx := range snap.Columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			switch v := row[colIdx].(type) {
			case time.Time:
				f.SetCellValue(sheetName, cell, v.Format("2006-01-02 15:04:05"))
			default:
				f.SetCellValue(sheetName, cell, v)
			}
		}
	}

	for i := range snap.Columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 15)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// renderDocument produces a fixed-width plain-text rendering with simple page
// breaks, suitable for printing or pasting into a ticket.
func renderDocument(snap *execution.Snapshot) ([]byte, error) {
	// Display widths, not byte lengths, so multi-byte values stay aligned.
	widths := make([]int, len(snap.Columns))
	for i, col := range snap.Columns {
		widths[i] = runewidth.StringWidth(col)
	}
	cells := make([][]string, len(snap.Rows))
	for r, row := range snap.Rows {
		cells[r] = make([]string, len(snap.Columns))
		for i := range snap.Columns {
			s := cellString(row[i])
			cells[r][i] = s
			if w := runewidth.StringWidth(s); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeLine := func(values []string) {
		for i, v := range values {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(v)
			b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(v)))
		}
		b.WriteString("\n")
	}
	writeHeader := func() {
		writeLine(snap.Columns)
		for i, w := range widths {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(strings.Repeat("-", w))
		}
		b.WriteString("\n")
	}

	writeHeader()
	for r, row := range cells {
		if r > 0 && r%documentPageRows == 0 {
			b.WriteString("\f")
			writeHeader()
		}
		writeLine(row)
	}
	fmt.Fprintf(&b, "\n%d row(s)\n", len(snap.Rows))

	return []byte(b.String()), nil
}
