// Package history - Per-frame detection history with CSV export and SQLite persistence.
package history

import (
	"encoding/csv"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// TimestampFormat is the layout of exported timestamps, millisecond precision.
const TimestampFormat = "2006-01-02 15:04:05.000"

// DisplayWindow is the number of recent entries shown by live views.
const DisplayWindow = 20

// CSVHeader is the header row written by WriteCSV.
var CSVHeader = []string{"Timestamp", "Frame_Number", "Person_Count"}

// Entry is the summary of one processed frame.
type Entry struct {
	Timestamp   time.Time `json:"timestamp"`
	FrameNumber int       `json:"frame_number"`
	PersonCount int       `json:"person_count"`
}

// FormattedTimestamp returns the timestamp in local time using TimestampFormat.
func (e Entry) FormattedTimestamp() string {
	return e.Timestamp.Format(TimestampFormat)
}

// Log is an in-memory, append-only frame history. It is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Add appends an entry.
func (l *Log) Add(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Recent returns up to n of the newest entries, oldest first. A non-positive n selects
// DisplayWindow.
func (l *Log) Recent(n int) []Entry {
	if n <= 0 {
		n = DisplayWindow
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	return append([]Entry(nil), l.entries[start:]...)
}

// Entries returns a copy of every entry.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Clear removes every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// WriteCSV writes the log as CSV with a CSVHeader row.
func (l *Log) WriteCSV(w io.Writer) error {
	return WriteCSV(w, l.Entries())
}

// WriteCSV writes entries as CSV with a CSVHeader row.
//
// Arguments:
//   - w: The destination.
//   - entries: The entries, written in order.
//
// Returns:
//   - error: The first write error.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, e := range entries {
		row := []string{
			e.FormattedTimestamp(),
			strconv.Itoa(e.FrameNumber),
			strconv.Itoa(e.PersonCount),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write csv row for frame %d", e.FrameNumber)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}
