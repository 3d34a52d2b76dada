package search

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Knowledge base columns.
const (
	FieldTitle   = "Title"
	FieldText    = "Text"
	FieldAltText = "alt_Text"
)

// RequiredColumns must be present in the dataset header.
var RequiredColumns = []string{FieldTitle, FieldText, FieldAltText}

// ErrEmptyDataset is returned when the dataset has a header but no rows.
var ErrEmptyDataset = errors.New("search: dataset contains no documents")

// LoadCSV reads the knowledge base from a CSV file with a header row.
func LoadCSV(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	docs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return docs, nil
}

// ReadCSV parses CSV records into documents keyed by header name.
func ReadCSV(r io.Reader) ([]Document, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	if err := checkColumns(header); err != nil {
		return nil, err
	}

	var docs []Document
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(docs)+2, err)
		}

		doc := make(Document, len(header))
		for i, col := range header {
			doc[col] = record[i]
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, ErrEmptyDataset
	}
	return docs, nil
}

func checkColumns(header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, col := range header {
		present[col] = struct{}{}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
