package store

import (
	"sync"

	"github.com/debug-flow/debug-flow/internal/revision"
)

// PinState tells which comparison slot, if any, holds a revision.
type PinState int

const (
	NotPinned PinState = iota
	PinnedA
	PinnedB
)

func (p PinState) String() string {
	switch p {
	case PinnedA:
		return "A"
	case PinnedB:
		return "B"
	default:
		return "not pinned"
	}
}

type Pin struct {
	NodeID   string
	Revision revision.Metadata
}

// PinTracker holds up to two revisions selected for comparison. Slot A is
// the base of a diff and slot B the head.
type PinTracker struct {
	mu          sync.Mutex
	slots       [2]*Pin
	highlighted string
}

func NewPinTracker() *PinTracker {
	return &PinTracker{}
}

// AddPin stores the pin in the first empty slot. When both slots are taken
// nothing changes and NotPinned is returned.
func (p *PinTracker) AddPin(nodeID string, rev revision.Metadata) PinState {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, slot := range p.slots {
		if slot == nil {
			p.slots[i] = &Pin{NodeID: nodeID, Revision: rev}
			return PinState(i + 1)
		}
	}
	return NotPinned
}

// ClearPins empties the given slots, or both when none are given.
func (p *PinTracker) ClearPins(states ...PinState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(states) == 0 {
		p.slots = [2]*Pin{}
		return
	}
	for _, st := range states {
		if i := slotIndex(st); i >= 0 {
			p.slots[i] = nil
		}
	}
}

func (p *PinTracker) Pin(state PinState) (Pin, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slotIndex(state)
	if i < 0 || p.slots[i] == nil {
		return Pin{}, false
	}
	return *p.slots[i], true
}

// StateOf reports where a revision is pinned. Revisions are matched by
// their rev string.
func (p *PinTracker) StateOf(rev *revision.Metadata) PinState {
	if rev == nil {
		return NotPinned
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, slot := range p.slots {
		if slot != nil && revision.SameRevision(&slot.Revision, rev) {
			return PinState(i + 1)
		}
	}
	return NotPinned
}

// Range returns the revisions to compare once both slots are filled.
func (p *PinTracker) Range() (base, head revision.Metadata, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slots[0] == nil || p.slots[1] == nil {
		return revision.Metadata{}, revision.Metadata{}, false
	}
	return p.slots[0].Revision, p.slots[1].Revision, true
}

func (p *PinTracker) Highlight(nodeID string) {
	p.mu.Lock()
	p.highlighted = nodeID
	p.mu.Unlock()
}

func (p *PinTracker) ClearHighlight() {
	p.Highlight("")
}

func (p *PinTracker) Highlighted() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.highlighted
}

func (p *PinTracker) reset() {
	p.mu.Lock()
	p.slots = [2]*Pin{}
	p.highlighted = ""
	p.mu.Unlock()
}

func slotIndex(state PinState) int {
	switch state {
	case PinnedA:
		return 0
	case PinnedB:
		return 1
	default:
		return -1
	}
}
