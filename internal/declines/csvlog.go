package declines

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultLogFile is the CSV file decline records are appended to by default.
const DefaultLogFile = "declined_attendees.csv"

var csvHeader = []string{"Event ID", "Attendee Email"}

// CSVLog appends decline records to a CSV file. The header row is written
// when the file is empty.
type CSVLog struct {
	path string
	mu   sync.Mutex
}

// NewCSVLog returns a log writing to path.
func NewCSVLog(path string) *CSVLog {
	if path == "" {
		path = DefaultLogFile
	}
	return &CSVLog{path: path}
}

// Path returns the file the log appends to.
func (l *CSVLog) Path() string {
	return l.path
}

// Append writes one row per record.
func (l *CSVLog) Append(records []Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", l.path, err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", l.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", l.path, cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", l.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for _, r := range records {
		if err := w.Write([]string{r.EventID, r.AttendeeEmail}); err != nil {
			return fmt.Errorf("failed to write record for %s: %w", r.EventID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", l.path, err)
	}
	return nil
}

// Records returns the rows logged so far, skipping the header row. A log
// that was never written holds no records.
func (l *CSVLog) Records() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", l.path, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", l.path, err)
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		if i == 0 && len(row) == 2 && row[0] == csvHeader[0] {
			continue
		}
		if len(row) != 2 {
			return nil, fmt.Errorf("%s line %d: expected 2 fields, got %d", l.path, i+1, len(row))
		}
		records = append(records, Record{EventID: row[0], AttendeeEmail: row[1]})
	}
	return records, nil
}
