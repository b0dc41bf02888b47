package diabicus

import (
	"fmt"
	"strings"
)

// Entry is one calculation: what was typed, what it produced, and what the
// display showed.
type Entry struct {
	Formula string
	Result  Value
	Output  string
}

// History is a read-only snapshot of a session's calculations, oldest
// first. Accessors return copies, so case tests cannot alter the session.
type History struct {
	entries []Entry
}

// NewHistory builds a History from entries, copying them.
func NewHistory(entries ...Entry) History {
	return History{entries: append([]Entry(nil), entries...)}
}

func (h History) Len() int { return len(h.entries) }

// At returns the i-th entry; negative i counts from the end.
func (h History) At(i int) (Entry, bool) {
	if i < 0 {
		i += len(h.entries)
	}
	if i < 0 || i >= len(h.entries) {
		return Entry{}, false
	}
	return h.entries[i], true
}

// Last returns up to n most recent entries, oldest first.
func (h History) Last(n int) []Entry {
	if n > len(h.entries) {
		n = len(h.entries)
	}
	if n <= 0 {
		return nil
	}
	return append([]Entry(nil), h.entries[len(h.entries)-n:]...)
}

func (h History) Entries() []Entry { return h.Last(len(h.entries)) }

func (h History) Results() []Value {
	out := make([]Value, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Result
	}
	return out
}

func (h History) Formulas() []string {
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Formula
	}
	return out
}

func (h History) Outputs() []string {
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Output
	}
	return out
}

// with returns a new History with e appended; h is left untouched.
func (h History) with(e Entry) History {
	entries := make([]Entry, len(h.entries), len(h.entries)+1)
	copy(entries, h.entries)
	return History{entries: append(entries, e)}
}

// String summarises the last five entries for logs.
func (h History) String() string {
	last := h.Last(5)
	parts := make([]string, len(last))
	for i, e := range last {
		parts[i] = fmt.Sprintf("%q=%s", e.Formula, e.Result)
	}
	return fmt.Sprintf("{len: %d, last: <%s>}", len(h.entries), strings.Join(parts, ", "))
}
