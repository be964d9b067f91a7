package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wonny/clv/backend/internal/frame"
)

// writeCSV writes one <name>.csv per table
func (e *Exporter) writeCSV(tables []Table) ([]string, error) {
	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(e.dir, t.Name+".csv")
		if err := writeCSVFile(path, t.Frame); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSVFile(path string, f *frame.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := WriteCSV(file, f); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteCSV writes a header row and one record per frame row
func WriteCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)
	names := f.Names()
	if err := cw.Write(names); err != nil {
		return err
	}

	record := make([]string, len(names))
	for row := 0; row < f.Len(); row++ {
		for j, name := range names {
			v, err := f.Value(name, row)
			if err != nil {
				return err
			}
			record[j] = cell(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
