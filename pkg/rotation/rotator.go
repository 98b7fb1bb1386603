package rotation

import "sort"

type State int

const (
	StateLoading State = iota
	StateShowing
	StateFading
	StateEmpty
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateShowing:
		return "showing"
	case StateFading:
		return "fading"
	case StateEmpty:
		return "empty"
	}
	return "unknown"
}

// Message is one entry of the rotation.
type Message struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// Frame is what the viewer should render right now.
type Frame struct {
	State   string `json:"state"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	ID      uint   `json:"id,omitempty"`
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
}

// Rotator cycles through messages: Loading -> Showing(i) -> Fading -> Showing(i+1 mod n),
// or Empty when there is nothing to show. It is not safe for concurrent use.
type Rotator struct {
	msgs  []Message
	index int
	state State
}

func NewRotator() *Rotator {
	return &Rotator{state: StateLoading}
}

func sorted(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Load replaces the set and starts from the first message.
func (r *Rotator) Load(msgs []Message) {
	r.msgs = sorted(msgs)
	r.index = 0
	if len(r.msgs) == 0 {
		r.state = StateEmpty
		return
	}
	r.state = StateShowing
}

// Refresh replaces the set, keeping the current message when it is still present.
// A fade in progress is left to finish.
func (r *Rotator) Refresh(msgs []Message) {
	if r.state == StateLoading {
		r.Load(msgs)
		return
	}
	var currentID uint
	hasCurrent := r.index < len(r.msgs)
	if hasCurrent {
		currentID = r.msgs[r.index].ID
	}

	r.msgs = sorted(msgs)
	switch {
	case len(r.msgs) == 0:
		r.index = 0
	case hasCurrent && r.indexOf(currentID) >= 0:
		r.index = r.indexOf(currentID)
	case r.index >= len(r.msgs):
		r.index = len(r.msgs) - 1
	}

	if r.state == StateFading {
		return
	}
	if len(r.msgs) == 0 {
		r.state = StateEmpty
	} else {
		r.state = StateShowing
	}
}

func (r *Rotator) indexOf(id uint) int {
	for i, m := range r.msgs {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// BeginFade starts fading out the current message. It reports false when
// there is nothing to rotate to.
func (r *Rotator) BeginFade() bool {
	if r.state != StateShowing || len(r.msgs) < 2 {
		return false
	}
	r.state = StateFading
	return true
}

// Advance completes a fade by showing the next message.
func (r *Rotator) Advance() {
	if r.state != StateFading {
		return
	}
	if len(r.msgs) == 0 {
		r.index = 0
		r.state = StateEmpty
		return
	}
	r.index = (r.index + 1) % len(r.msgs)
	r.state = StateShowing
}

func (r *Rotator) State() State { return r.state }

func (r *Rotator) Frame() Frame {
	f := Frame{
		State:   r.state.String(),
		Index:   r.index,
		Total:   len(r.msgs),
		Visible: r.state == StateShowing,
	}
	if (r.state == StateShowing || r.state == StateFading) && r.index < len(r.msgs) {
		f.ID = r.msgs[r.index].ID
		f.Text = r.msgs[r.index].Text
	}
	return f
}
