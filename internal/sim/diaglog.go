package sim

import "fmt"

// DiagEntry is one recorded diagnostic during a simulation run.
type DiagEntry struct {
	Tick     int
	Unit     string  // label e.g. "u3", or "--" for global entries
	Category string  // command, state, path, combat, invariant
	Key      string  // event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[T=042] u3   state   change   moving → attacking
func (e DiagEntry) String() string {
	return fmt.Sprintf("[T=%03d] %-4s %-10s %-14s %s",
		e.Tick, e.Unit, e.Category, e.Key, e.Value)
}

// DiagLog collects structured diagnostics. Unbounded and machine-readable:
// tests filter it instead of scraping stdout. Verbose mode adds per-tick
// movement traces.
type DiagLog struct {
	entries []DiagEntry
	verbose bool
}

// NewDiagLog creates a DiagLog. Verbose enables per-tick position entries.
func NewDiagLog(verbose bool) *DiagLog {
	return &DiagLog{verbose: verbose}
}

// Add records a new entry.
func (dl *DiagLog) Add(tick int, unit, category, key, value string, numVal float64) {
	dl.entries = append(dl.entries, DiagEntry{
		Tick:     tick,
		Unit:     unit,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// AddVerbose records an entry only when verbose mode is on.
func (dl *DiagLog) AddVerbose(tick int, unit, category, key, value string, numVal float64) {
	if !dl.verbose {
		return
	}
	dl.Add(tick, unit, category, key, value, numVal)
}

// Entries returns all recorded entries.
func (dl *DiagLog) Entries() []DiagEntry {
	return dl.entries
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (dl *DiagLog) Filter(category, key string) []DiagEntry {
	var out []DiagEntry
	for _, e := range dl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterUnit returns entries for a specific unit label.
func (dl *DiagLog) FilterUnit(label string) []DiagEntry {
	var out []DiagEntry
	for _, e := range dl.entries {
		if e.Unit == label {
			out = append(out, e)
		}
	}
	return out
}
