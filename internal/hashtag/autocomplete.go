package hashtag

import (
	"context"
	"sync"
)

// EmptyText is shown when a hashtag is being typed but nothing matches.
const EmptyText = "No projects found"

// PanelState is the visibility of the suggestion panel.
type PanelState int

const (
	PanelHidden PanelState = iota
	PanelEmpty
	PanelList
)

func (s PanelState) String() string {
	switch s {
	case PanelEmpty:
		return "empty"
	case PanelList:
		return "list"
	default:
		return "hidden"
	}
}

func (s PanelState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PanelState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "empty":
		*s = PanelEmpty
	case "list":
		*s = PanelList
	default:
		*s = PanelHidden
	}
	return nil
}

// Panel is what the suggestion dropdown shows.
type Panel struct {
	State PanelState  `json:"state"`
	Term  string      `json:"term"`
	Items []Candidate `json:"items"`
}

// Message is the placeholder text for an empty panel.
func (p Panel) Message() string {
	if p.State == PanelEmpty {
		return EmptyText
	}
	return ""
}

// Visible reports whether the panel is shown at all.
func (p Panel) Visible() bool {
	return p.State != PanelHidden
}

// PanelFor is the panel shown for term once its lookup returned items.
func PanelFor(term string, items []Candidate) Panel {
	if len(items) == 0 {
		return Panel{State: PanelEmpty, Term: term}
	}
	return Panel{State: PanelList, Term: term, Items: items}
}

// Autocomplete tracks the suggestion panel for one text input. Lookups run
// outside the lock; a result is discarded if the input changed while it was
// in flight.
type Autocomplete struct {
	source Source
	limit  int

	mu       sync.Mutex
	viewerID string
	seq      uint64
	panel    Panel
}

// NewAutocomplete returns an Autocomplete suggesting projects for viewerID.
func NewAutocomplete(source Source, viewerID string) *Autocomplete {
	return &Autocomplete{source: source, viewerID: viewerID, limit: DefaultLimit}
}

// SetLimit changes how many suggestions are requested. Non-positive values
// restore DefaultLimit.
func (a *Autocomplete) SetLimit(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= 0 {
		n = DefaultLimit
	}
	a.limit = n
}

// SetViewer switches the viewer and hides the panel.
func (a *Autocomplete) SetViewer(viewerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.viewerID = viewerID
	a.hideLocked()
}

// Update recomputes suggestions for the text and caret position.
func (a *Autocomplete) Update(ctx context.Context, text string, caret int) (Panel, error) {
	tok := Detect(text, caret)

	a.mu.Lock()
	if !tok.Active {
		a.hideLocked()
		a.mu.Unlock()
		return Panel{}, nil
	}
	a.seq++
	seq := a.seq
	q := Query{Term: tok.Term, ViewerID: a.viewerID, Limit: a.limit}
	a.mu.Unlock()

	items, err := a.source.Suggest(ctx, q)

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.seq {
		return a.panel, nil
	}
	if err != nil {
		a.panel = Panel{}
		return a.panel, err
	}
	a.panel = PanelFor(tok.Term, items)
	return a.panel, nil
}

// KeyDown handles keys the panel reacts to. It reports whether the key was consumed.
func (a *Autocomplete) KeyDown(key string) bool {
	if key != "Escape" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.panel.Visible() {
		return false
	}
	a.hideLocked()
	return true
}

// ClickOutside hides the panel.
func (a *Autocomplete) ClickOutside() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hideLocked()
}

// Panel returns the current panel.
func (a *Autocomplete) Panel() Panel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.panel
}

// Select applies c to the token under the caret and hides the panel.
func (a *Autocomplete) Select(text string, caret int, c Candidate) (Selection, error) {
	sel, err := Apply(text, caret, c)
	if err != nil {
		return Selection{}, err
	}
	a.mu.Lock()
	a.hideLocked()
	a.mu.Unlock()
	return sel, nil
}

func (a *Autocomplete) hideLocked() {
	a.seq++
	a.panel = Panel{}
}
