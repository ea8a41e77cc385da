package export

import (
	"bytes"
	"encoding/csv"
)

// WriteCSV writes the same rows as the spreadsheet export.
func WriteCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Field", "Value"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Field, row.Value}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
