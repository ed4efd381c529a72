// Package spreadsheet turns the first sheet of a workbook into header-keyed records.
package spreadsheet

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bryanwahyu/sheetqa/internal/domain/documents"
)

const emptyHeader = "__EMPTY"

// Parser implements documents.Parser with excelize.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (*Parser) Parse(r io.Reader) ([]documents.Record, error) {
	return Parse(r)
}

// Parse reads a workbook from r.
func Parse(r io.Reader) ([]documents.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return firstSheetRecords(f)
}

// ParseFile reads a workbook from disk.
func ParseFile(path string) ([]documents.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()
	return firstSheetRecords(f)
}

func firstSheetRecords(f *excelize.File) ([]documents.Record, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []documents.Record{}, nil
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	headers := uniqueHeaders(rows[0], width)

	records := make([]documents.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec := documents.NewRecord()
		for col, raw := range row {
			if raw == "" {
				continue
			}
			// rows[1:] starts at sheet row 2
			val, err := cellValue(f, sheet, col+1, i+2, raw)
			if err != nil {
				return nil, err
			}
			rec.Set(headers[col], val)
		}
		if rec.Len() == 0 {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// uniqueHeaders names empty headers __EMPTY and suffixes repeats with _1, _2...
// Header text is kept as written, surrounding spaces included.
func uniqueHeaders(row []string, width int) []string {
	counts := make(map[string]int, width)
	out := make([]string, width)
	for i := range out {
		base := ""
		if i < len(row) {
			base = row[i]
		}
		if base == "" {
			base = emptyHeader
		}
		name := base
		if n, dup := counts[base]; dup {
			for {
				n++
				name = fmt.Sprintf("%s_%d", base, n)
				if _, taken := counts[name]; !taken {
					break
				}
			}
			counts[base] = n
		}
		counts[name] = 0
		out[i] = name
	}
	return out
}

func cellValue(f *excelize.File, sheet string, col, row int, raw string) (any, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return nil, fmt.Errorf("cell type %s: %w", axis, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return raw, nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return raw, nil
	}
	return n, nil
}
