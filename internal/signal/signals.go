package signal

import "sort"

// StackSignals aggregates stack matches across a run. Every category maps
// to the full set of observed values, each with the files it was seen in.
// Earlier single-winner behavior produced false negatives in mixed-stack
// repositories, so collapsing is deliberately impossible here.
type StackSignals struct {
	byCategory map[string]map[string]map[string]bool // category -> value -> files
}

func NewStackSignals() *StackSignals {
	return &StackSignals{byCategory: make(map[string]map[string]map[string]bool)}
}

func (s *StackSignals) Add(category, value, file string) {
	values, ok := s.byCategory[category]
	if !ok {
		values = make(map[string]map[string]bool)
		s.byCategory[category] = values
	}
	files, ok := values[value]
	if !ok {
		files = make(map[string]bool)
		values[value] = files
	}
	if file != "" {
		files[file] = true
	}
}

func (s *StackSignals) AddMatch(m Match) {
	s.Add(m.Category, m.Value, m.File)
}

// Categories returns all observed categories in sorted order.
func (s *StackSignals) Categories() []string {
	out := make([]string, 0, len(s.byCategory))
	for c := range s.byCategory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Values returns all observed values for a category in sorted order.
func (s *StackSignals) Values(category string) []string {
	values := s.byCategory[category]
	out := make([]string, 0, len(values))
	for v := range values {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Files returns the files a (category, value) pair was observed in.
func (s *StackSignals) Files(category, value string) []string {
	files := s.byCategory[category][value]
	out := make([]string, 0, len(files))
	for f := range files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Len returns the total number of (category, value) pairs.
func (s *StackSignals) Len() int {
	n := 0
	for _, values := range s.byCategory {
		n += len(values)
	}
	return n
}
