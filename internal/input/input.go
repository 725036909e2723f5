// Package input enumerates the query batch from its source file.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadQueries loads query strings from a semicolon-delimited CSV file. Only
// the first field of each row is used, order is preserved, and blank or
// whitespace-only rows are skipped.
func ReadQueries(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator configuration.
	if err != nil {
		return nil, fmt.Errorf("open query file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	return parseQueries(f)
}

func parseQueries(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	var queries []string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read query row: %w", err)
		}
		if len(row) == 0 {
			continue
		}
		query := row[0]
		if strings.TrimSpace(query) == "" {
			continue
		}
		queries = append(queries, query)
	}
	return queries, nil
}
