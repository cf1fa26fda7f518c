// Package auditlog keeps a bounded, queryable buffer of structured log entries.
//
// Entries are evicted FIFO once the configured capacity is reached. Every
// insertion is mirrored to a writer (stdout by default) with a fixed
// "[timestamp] [LEVEL] [category]" prefix so the buffer and the process output
// stay in step.
package auditlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is used when a non-positive capacity is configured
const DefaultCapacity = 1000

// Level is the severity of an entry
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel maps a level name to a Level, reporting whether it is known
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToLower(s)) {
	case LevelDebug:
		return LevelDebug, true
	case LevelInfo:
		return LevelInfo, true
	case LevelWarn, "warning":
		return LevelWarn, true
	case LevelError:
		return LevelError, true
	}
	return "", false
}

// Entry is one audit record
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// Filter narrows a Query. Zero values match everything; Limit <= 0 means no limit.
type Filter struct {
	Level    Level
	Category string
	Since    time.Time
	Offset   int
	Limit    int
}

// Stats summarizes the buffer content
type Stats struct {
	Total      int            `json:"total"`
	Capacity   int            `json:"capacity"`
	ByLevel    map[Level]int  `json:"by_level"`
	ByCategory map[string]int `json:"by_category"`
	Oldest     *time.Time     `json:"oldest,omitempty"`
	Newest     *time.Time     `json:"newest,omitempty"`
}

// Option configures a Log
type Option func(*Log)

// WithMirror replaces the stdout mirror; nil disables mirroring
func WithMirror(w io.Writer) Option {
	return func(l *Log) { l.mirror = w }
}

// WithClock overrides the entry timestamp source
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// Log is a fixed-capacity ring buffer of entries, safe for concurrent use
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	head     int // index of the oldest entry
	size     int
	capacity int

	mirrorMu sync.Mutex
	mirror   io.Writer
	now      func() time.Time
}

// New creates a Log holding at most capacity entries
func New(capacity int, opts ...Option) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Log{
		entries:  make([]Entry, capacity),
		capacity: capacity,
		mirror:   os.Stdout,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Add appends an entry, evicting the oldest one when full, and returns it
func (l *Log) Add(level Level, category, message string, data map[string]any) Entry {
	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: l.now(),
		Level:     level,
		Category:  category,
		Message:   message,
		Data:      data,
	}

	l.mu.Lock()
	if l.size < l.capacity {
		l.entries[(l.head+l.size)%l.capacity] = entry
		l.size++
	} else {
		l.entries[l.head] = entry
		l.head = (l.head + 1) % l.capacity
	}
	mirror := l.mirror
	l.mu.Unlock()

	if mirror != nil {
		l.mirrorMu.Lock()
		_, _ = io.WriteString(mirror, FormatLine(entry))
		l.mirrorMu.Unlock()
	}
	return entry
}

// Debug adds a debug entry
func (l *Log) Debug(category, message string, data map[string]any) {
	l.Add(LevelDebug, category, message, data)
}

// Info adds an info entry
func (l *Log) Info(category, message string, data map[string]any) {
	l.Add(LevelInfo, category, message, data)
}

// Warn adds a warn entry
func (l *Log) Warn(category, message string, data map[string]any) {
	l.Add(LevelWarn, category, message, data)
}

// Error adds an error entry
func (l *Log) Error(category, message string, data map[string]any) {
	l.Add(LevelError, category, message, data)
}

// Query returns matching entries sorted newest first, then paginated
func (l *Log) Query(f Filter) []Entry {
	l.mu.RLock()
	matched := make([]Entry, 0, l.size)
	for i := 0; i < l.size; i++ {
		e := l.entries[(l.head+i)%l.capacity]
		if f.Level != "" && e.Level != f.Level {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		matched = append(matched, e)
	}
	l.mu.RUnlock()

	// newest first; equal timestamps keep reverse insertion order
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []Entry{}
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched
}

// Stats aggregates counts per level and category
func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := Stats{
		Total:      l.size,
		Capacity:   l.capacity,
		ByLevel:    make(map[Level]int),
		ByCategory: make(map[string]int),
	}
	for i := 0; i < l.size; i++ {
		e := l.entries[(l.head+i)%l.capacity]
		st.ByLevel[e.Level]++
		st.ByCategory[e.Category]++
		ts := e.Timestamp
		if st.Oldest == nil || ts.Before(*st.Oldest) {
			st.Oldest = &ts
		}
		if st.Newest == nil || ts.After(*st.Newest) {
			st.Newest = &ts
		}
	}
	return st
}

// Len returns the number of buffered entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Capacity returns the maximum number of entries
func (l *Log) Capacity() int {
	return l.capacity
}

// Clear drops all entries
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]Entry, l.capacity)
	l.head = 0
	l.size = 0
}

// FormatLine renders the stdout mirror line for an entry
func FormatLine(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] [%s] %s",
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		strings.ToUpper(string(e.Level)),
		e.Category,
		e.Message,
	)
	if len(e.Data) > 0 {
		if raw, err := json.Marshal(e.Data); err == nil {
			b.WriteByte(' ')
			b.Write(raw)
		}
	}
	b.WriteByte('\n')
	return b.String()
}
