package round

// Labels shown on the submit control.
const (
	LabelHuman = "I am sure it is fine..."
	LabelBot   = "It is a bot!"
)

// Selection accumulates the tags a player attaches to spans of a snippet.
// The same tag may be attached to several spans, so each tag carries a count.
type Selection struct {
	order  []string
	counts map[string]int
	total  int
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{counts: make(map[string]int)}
}

// AddTag attaches tag to one more span and returns its new count.
func (s *Selection) AddTag(tag string) int {
	if s.counts[tag] == 0 && !s.known(tag) {
		s.order = append(s.order, tag)
	}
	s.counts[tag]++
	s.total++
	return s.counts[tag]
}

// RemoveTag detaches tag from one span. Removing a tag whose count is
// already zero leaves the selection untouched and returns false.
func (s *Selection) RemoveTag(tag string) (count int, removed bool) {
	if s.counts[tag] <= 0 {
		return 0, false
	}
	s.counts[tag]--
	s.total--
	return s.counts[tag], true
}

// Count returns the number of spans tagged with tag.
func (s *Selection) Count(tag string) int { return s.counts[tag] }

// Total is the aggregate count over all tags.
func (s *Selection) Total() int { return s.total }

// Tags returns the tags with a positive count in first-added order.
func (s *Selection) Tags() []string {
	out := make([]string, 0, len(s.order))
	for _, t := range s.order {
		if s.counts[t] > 0 {
			out = append(out, t)
		}
	}
	return out
}

// FlaggedAsBot is the verdict derived from the aggregate count.
func (s *Selection) FlaggedAsBot() bool { return s.total > 0 }

// Label is the submit control text for the current aggregate count.
func (s *Selection) Label() string {
	if s.FlaggedAsBot() {
		return LabelBot
	}
	return LabelHuman
}

func (s *Selection) known(tag string) bool {
	for _, t := range s.order {
		if t == tag {
			return true
		}
	}
	return false
}
