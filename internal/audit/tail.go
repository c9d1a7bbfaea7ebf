package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Filter selects journal entries. Zero fields match everything.
type Filter struct {
	Event string
	Token string
	Since time.Time
}

// Summary counts entries per event.
type Summary struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Fetched   int `json:"fetched"`
	Confirmed int `json:"confirmed"`
	Skipped   int `json:"skipped"`
	// Unfetched is queued minus fetched: jobs still pending or lost to a
	// restart.
	Unfetched int `json:"unfetched"`
}

// Read returns entries matching f in journal order. Malformed lines are
// skipped.
func Read(path string, f Filter) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	var out []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if f.Event != "" && e.Event != f.Event {
			continue
		}
		if f.Token != "" && e.Token != f.Token {
			continue
		}
		if !f.Since.IsZero() {
			ts, err := time.Parse(TimestampFormat, e.Timestamp)
			if err != nil || ts.Before(f.Since) {
				continue
			}
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}

// Tail returns the last n entries matching f.
func Tail(path string, n int, f Filter) ([]Entry, error) {
	entries, err := Read(path, f)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Summarize counts entries by event.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		s.Total++
		switch e.Event {
		case EventQueued:
			s.Queued++
		case EventFetched:
			s.Fetched++
		case EventConfirmed:
			s.Confirmed++
		case EventSkipped:
			s.Skipped++
		}
	}
	if s.Queued > s.Fetched {
		s.Unfetched = s.Queued - s.Fetched
	}
	return s
}

// FormatTable renders entries one per line for terminal output.
func FormatTable(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		ts := e.Timestamp
		if t, err := time.Parse(TimestampFormat, e.Timestamp); err == nil {
			ts = t.Format("01-02 15:04:05")
		}
		fmt.Fprintf(&b, "%-14s %-9s %-36s %-8s %-20s %s\n",
			ts, e.Event, e.Token, e.Source, truncate(e.Customer, 20), e.Detail)
	}
	s := Summarize(entries)
	fmt.Fprintf(&b, "%d entries: %d queued, %d fetched, %d confirmed, %d skipped\n",
		s.Total, s.Queued, s.Fetched, s.Confirmed, s.Skipped)
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
