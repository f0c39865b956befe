package pshellline

// History is an ordered list of accepted command lines (component B,
// spec §3). Entries are de-duplicated against the immediately previous
// entry; Cursor advances with Up/Down and resets past the end whenever a
// new entry is written.
type History struct {
	entries []string
	cursor  int
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Add appends line to the history unless it equals the previous entry or
// is empty. The cursor resets to just past the end.
func (h *History) Add(line string) {
	defer h.resetCursor()

	if line == "" {
		return
	}
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == line {
		return
	}
	h.entries = append(h.entries, line)
}

func (h *History) resetCursor() {
	h.cursor = len(h.entries)
}

// Up moves the cursor back one entry and returns it, or ok=false if
// already at the oldest entry.
func (h *History) Up() (line string, ok bool) {
	if h.cursor == 0 {
		return "", false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Down moves the cursor forward one entry. Moving past the newest entry
// clears the line (returns "", true) rather than failing.
func (h *History) Down() (line string, ok bool) {
	if h.cursor >= len(h.entries) {
		return "", false
	}
	h.cursor++
	if h.cursor == len(h.entries) {
		return "", true
	}
	return h.entries[h.cursor], true
}

// All returns the history entries in insertion order.
func (h *History) All() []string {
	return h.entries
}
