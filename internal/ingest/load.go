// Package ingest turns a raw ledger file into a vetted transaction table.
//
// The pipeline runs Load, Clean and Validate in that order. Read failures are
// fatal; data quality problems are reported in Diagnostics and either
// repaired (duplicates, negative amounts) or left in place (dates, ids).
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ledgerdash/internal/core"
)

var (
	// ErrEmptyInput is returned when the file has no header row.
	ErrEmptyInput = errors.New("no columns to parse from file")
	// ErrTooManyFields is returned when a record is wider than the header.
	ErrTooManyFields = errors.New("record has more fields than header")
)

// Load reads a comma-separated file fully into memory.
func Load(path string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV with a header row. Any columns are accepted; short records
// are padded with nulls and the amount column, if any, is typed.
func Read(r io.Reader) (*core.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := normalizeHeader(header)
	amountIdx := indexOf(columns, core.ColAmount)

	var rows []core.Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(record) > len(columns) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d: %w", line, len(columns), len(record), ErrTooManyFields)
		}
		for len(record) < len(columns) {
			record = append(record, "")
		}
		row := core.NewRow(record)
		if amountIdx >= 0 {
			row.Amount = core.ParseAmount(record[amountIdx])
		}
		rows = append(rows, row)
	}

	return core.NewTable(columns, rows), nil
}

// normalizeHeader strips a UTF-8 BOM and renames repeated names to name.1,
// name.2 and so on.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
