package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadCSVFile reads records from a CSV file. See ReadCSV.
func LoadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a header row followed by one record per line. The id,
// TrackName, Date and Genre columns (matched case-insensitively) fill the
// record fields; every other column is a performer slot. When there is no id
// column the 1-based row number is used.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idCol, trackCol, dateCol, genreCol := -1, -1, -1, -1
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		switch strings.ToLower(header[i]) {
		case "id":
			idCol = i
		case "trackname", "track_name", "track":
			trackCol = i
		case "date":
			dateCol = i
		case "genre":
			genreCol = i
		}
	}

	var out []Record
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		rec := Record{ID: strconv.Itoa(row), Slots: make(map[string]string)}
		for i, v := range fields {
			if i >= len(header) {
				break
			}
			switch i {
			case idCol:
				if v != "" {
					rec.ID = v
				}
			case trackCol:
				rec.TrackName = v
			case dateCol:
				rec.Date = v
			case genreCol:
				rec.Genre = v
			default:
				if header[i] != "" && strings.TrimSpace(v) != "" {
					rec.Slots[header[i]] = v
				}
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
