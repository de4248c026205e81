package telemetry

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// ErrLogClosed is returned when writing to a closed log.
var ErrLogClosed = errors.New("telemetry: log closed")

const maxLogSuffix = 1000

// CSVLog is a buffered, append-only CSV file. Rows are formatted by the
// caller so each log keeps its own fixed-precision layout.
type CSVLog struct {
	file   *os.File
	w      *bufio.Writer
	path   string
	rows   int
	closed bool
}

// OpenCSV creates dir if needed, creates the file name inside it and writes
// the header line. An existing file is never overwritten: the name gets a
// numeric suffix instead.
func OpenCSV(dir, name, header string) (*CSVLog, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("telemetry: create log dir: %w", err)
	}
	f, p, err := createUnique(dir, name)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create log: %w", err)
	}
	l := &CSVLog{file: f, w: bufio.NewWriter(f), path: p}
	if _, err := l.w.WriteString(header + "\n"); err != nil {
		return nil, multierr.Append(fmt.Errorf("telemetry: write header: %w", err), f.Close())
	}
	return l, nil
}

func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; i < maxLogSuffix; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		p := filepath.Join(dir, candidate)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return f, p, err
	}
	return nil, "", fmt.Errorf("%s: %w", filepath.Join(dir, name), fs.ErrExist)
}

// WriteRow appends one formatted line.
func (l *CSVLog) WriteRow(format string, args ...interface{}) error {
	if l == nil || l.closed {
		return ErrLogClosed
	}
	if _, err := fmt.Fprintf(l.w, format+"\n", args...); err != nil {
		return err
	}
	l.rows++
	return nil
}

// Close flushes buffered rows and closes the file. Closing twice is a no-op.
func (l *CSVLog) Close() error {
	if l == nil || l.closed {
		return nil
	}
	l.closed = true
	return multierr.Combine(l.w.Flush(), l.file.Close())
}

func (l *CSVLog) Path() string { return l.path }

// Rows is the number of data rows written, excluding the header.
func (l *CSVLog) Rows() int { return l.rows }
