package core

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Template returns the canonical header row followed by the schema's example rows.
// Parsing the CSV rendering of a template always yields its examples with no errors.
func Template(s Schema) [][]string {
	rows := make([][]string, 0, len(s.Examples)+1)
	rows = append(rows, s.Columns())
	for _, ex := range s.Examples {
		row := make([]string, len(ex))
		copy(row, ex)
		rows = append(rows, row)
	}
	return rows
}

// TemplateFileName returns the download name for a template.
func TemplateFileName(s Schema, ext string) string {
	return fmt.Sprintf("%s_import_template.%s", s.Type, ext)
}

// WriteTemplateCSV writes the template as CSV.
func WriteTemplateCSV(w io.Writer, s Schema) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Template(s)); err != nil {
		return fmt.Errorf("write csv template: %w", err)
	}
	return nil
}

// WriteTemplateXLSX writes the template as a single-sheet workbook with a
// bold, frozen header row.
func WriteTemplateXLSX(w io.Writer, s Schema) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := s.Label
	if sheet == "" {
		sheet = string(s.Type)
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, row := range Template(s) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := styleHeader(f, sheet, len(s.Rules)); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx template: %w", err)
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols int) error {
	if cols == 0 {
		return nil
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
