package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/timberwood/outreach/internal/domain"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

var (
	ErrEmptyFile  = errors.New("file is empty")
	ErrNoColumns  = errors.New("no columns detected in header")
	ErrInvalidCSV = errors.New("invalid CSV format")
)

// ImportStats summarizes an upload.
type ImportStats struct {
	RowsRead       int    `json:"rows_read"`
	RowsKept       int    `json:"rows_kept"`
	Duplicates     int    `json:"duplicates_removed"`
	SkippedRows    int    `json:"skipped_rows"`
	BusinessColumn string `json:"business_column"`
	Degraded       bool   `json:"degraded_detection"`
}

// ReadCSV parses an uploaded CSV into a Table: header detection,
// management-column lifting (so a re-uploaded export keeps its workflow
// state), business-column detection, and dedup by business key with the
// first occurrence winning. Structural failures abort the upload with no
// partial state; nothing is committed until the whole file parses.
func ReadCSV(r io.Reader) (*Table, ImportStats, error) {
	var stats ImportStats

	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, stats, ErrEmptyFile
		}
		return nil, stats, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	var userCols []string
	mgmtIdx := make(map[int]string)
	for i, h := range header {
		h = strings.Trim(strings.TrimSpace(h), "\"'")
		header[i] = h
		if IsManagementColumn(h) {
			mgmtIdx[i] = h
			continue
		}
		userCols = append(userCols, h)
	}
	if len(userCols) == 0 {
		return nil, stats, ErrNoColumns
	}

	t := &Table{UserColumns: userCols}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("%w: row %d: %v", ErrInvalidCSV, stats.RowsRead+2, err)
		}
		stats.RowsRead++

		rec := domain.NewRecord(nil)
		for i, val := range row {
			if i >= len(header) {
				break
			}
			if name, ok := mgmtIdx[i]; ok {
				setManagementValue(rec, name, val)
				continue
			}
			rec.Fields[header[i]] = val
		}
		t.Rows = append(t.Rows, rec)
	}

	if len(t.Rows) == 0 {
		return nil, stats, ErrEmptyFile
	}

	col, _, degraded := DetectBusinessColumn(t)
	t.BusinessColumn = col
	stats.BusinessColumn = col
	stats.Degraded = degraded
	if degraded {
		logger.Warn("business column detection degraded, using first column", "column", col)
	}

	t.Rows, stats.Duplicates = dedupByKey(t)
	t.EnsureManagementColumns()
	stats.RowsKept = len(t.Rows)

	return t, stats, nil
}

// dedupByKey removes rows whose business key was already seen, keeping
// the first occurrence. Establishes invariant I1 for the session.
func dedupByKey(t *Table) ([]*domain.Record, int) {
	seen := make(map[string]bool, len(t.Rows))
	kept := t.Rows[:0]
	removed := 0
	for _, r := range t.Rows {
		key := t.Key(r)
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		kept = append(kept, r)
	}
	return kept, removed
}

// WriteCSV exports the table in the fixed column order: user columns
// exactly as uploaded, then the management columns.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	mgmt := ManagementColumns()
	row := make([]string, 0, len(t.UserColumns)+len(mgmt))
	for _, r := range t.Rows {
		row = row[:0]
		for _, c := range t.UserColumns {
			row = append(row, r.Fields[c])
		}
		for _, c := range mgmt {
			row = append(row, managementValue(r, c))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// stripBOM removes a UTF-8 byte order mark if present. Excel exports
// routinely carry one.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
