package session

// Window is the bounded conversation context sent with every request.
// Turns enter in user/assistant pairs and leave oldest first.
type Window struct {
	limit int
	turns []Message
}

// NewWindow returns an empty window. A non-positive limit falls back to
// DefaultHistoryLimit.
func NewWindow(limit int) *Window {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Window{limit: limit, turns: make([]Message, 0, limit+2)}
}

// Limit reports the maximum number of turns the window holds.
func (w *Window) Limit() int { return w.limit }

// Len reports the current number of turns.
func (w *Window) Len() int { return len(w.turns) }

// AddExchange appends a completed user/assistant pair and evicts from the
// front until the window fits its limit again.
func (w *Window) AddExchange(user, assistant Message) {
	w.turns = append(w.turns, user, assistant)
	if over := len(w.turns) - w.limit; over > 0 {
		// Drop whole pairs so the window never starts with an assistant turn.
		if over%2 == 1 {
			over++
		}
		w.turns = append(w.turns[:0:0], w.turns[over:]...)
	}
}

// Turns returns a copy of the window contents, oldest first.
func (w *Window) Turns() []Message {
	out := make([]Message, len(w.turns))
	copy(out, w.turns)
	return out
}
