package stroke

const DefaultDepth = 64

// History is the per-client undo stack. It is never shared with peers.
//
// base is the canvas state beneath the oldest kept snapshot. When the depth
// cap is hit the oldest snapshot becomes the new base.
type History struct {
	depth int
	base  Snapshot
	stack []Snapshot
}

func NewHistory(c *Canvas, depth int) *History {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &History{depth: depth, base: c.Snapshot()}
}

// Commit records the canvas after a finished gesture.
func (h *History) Commit(c *Canvas) {
	h.stack = append(h.stack, c.Snapshot())
	if len(h.stack) > h.depth {
		h.base = h.stack[0]
		h.stack = append(h.stack[:0:0], h.stack[1:]...)
	}
}

// Undo drops the last committed gesture and restores the canvas to the
// state beneath it. It reports false when there is nothing to undo.
func (h *History) Undo(c *Canvas) bool {
	if len(h.stack) == 0 {
		return false
	}
	h.stack = h.stack[:len(h.stack)-1]
	if len(h.stack) == 0 {
		c.Restore(h.base)
	} else {
		c.Restore(h.stack[len(h.stack)-1])
	}
	return true
}

// Reset forgets every snapshot and takes the current canvas as the base.
func (h *History) Reset(c *Canvas) {
	h.stack = nil
	h.base = c.Snapshot()
}

func (h *History) Len() int { return len(h.stack) }
