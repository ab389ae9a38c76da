package eventstudy

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// LoadPanelCSV reads a long-format panel from a headered CSV file. Every
// column must be numeric; categorical columns are expected to arrive already
// integer-coded.
func LoadPanelCSV(path string) (*Panel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open panel: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read panel: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("read panel %s: %w", path, ErrEmptyPanel)
	}

	header := rows[0]
	data := rows[1:]

	cols := make([][]float64, len(header))
	for j := range header {
		cols[j] = make([]float64, len(data))
	}

	for i, row := range data {
		if len(row) != len(header) {
			return nil, fmt.Errorf("read panel: row %d has %d fields, header has %d",
				i+2, len(row), len(header))
		}
		for j, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("read panel: row %d column %q: %q is not numeric",
					i+2, header[j], cell)
			}
			cols[j][i] = v
		}
	}

	p := NewPanel()
	for j, name := range header {
		if err := p.AddColumn(name, cols[j]); err != nil {
			return nil, err
		}
	}
	return p, nil
}
