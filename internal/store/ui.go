package store

import (
	"fmt"
	"log/slog"
	"sync"
)

type UIPreferences struct {
	MiniMapVisible        bool
	InlineDiff            bool
	FlowsDialogOpen       bool
	HelpDialogOpen        bool
	KeybindingsDialogOpen bool
	// GitDialogOpen is never persisted.
	GitDialogOpen bool
}

func DefaultUIPreferences() UIPreferences {
	return UIPreferences{MiniMapVisible: true}
}

// UIStore holds view preferences that are independent of the open document.
type UIStore struct {
	mu      sync.Mutex
	prefs   UIPreferences
	storage Storage
}

// NewUIStore restores persisted preferences from storage. A record that
// cannot be read is logged and replaced by defaults.
func NewUIStore(storage Storage) *UIStore {
	u := &UIStore{prefs: DefaultUIPreferences(), storage: storage}
	if storage == nil {
		return u
	}
	var rec uiRecord
	ok, err := storage.Load(UIStorageName, &rec)
	if err == nil && rec.Version > uiRecordVersion {
		err = fmt.Errorf("%s version %d: %w", UIStorageName, rec.Version, ErrUnsupportedVersion)
	}
	switch {
	case err != nil:
		slog.Warn("discarding persisted ui preferences", slog.Any("error", err))
	case ok:
		if rec.IsMiniMapVisible != nil {
			u.prefs.MiniMapVisible = *rec.IsMiniMapVisible
		}
		u.prefs.InlineDiff = rec.IsInlineDiff
		u.prefs.FlowsDialogOpen = rec.IsFlowsDialogOpen
		u.prefs.HelpDialogOpen = rec.IsHelpDialogOpen
		u.prefs.KeybindingsDialogOpen = rec.IsKeybindingsDialogOpen
	}
	return u
}

func (u *UIStore) Preferences() UIPreferences {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.prefs
}

func (u *UIStore) SetMiniMapVisible(v bool) {
	u.update(func(p *UIPreferences) { p.MiniMapVisible = v })
}

func (u *UIStore) SetInlineDiff(v bool) {
	u.update(func(p *UIPreferences) { p.InlineDiff = v })
}

func (u *UIStore) SetFlowsDialogOpen(v bool) {
	u.update(func(p *UIPreferences) { p.FlowsDialogOpen = v })
}

func (u *UIStore) SetHelpDialogOpen(v bool) {
	u.update(func(p *UIPreferences) { p.HelpDialogOpen = v })
}

func (u *UIStore) SetKeybindingsDialogOpen(v bool) {
	u.update(func(p *UIPreferences) { p.KeybindingsDialogOpen = v })
}

func (u *UIStore) SetGitDialogOpen(v bool) {
	u.update(func(p *UIPreferences) { p.GitDialogOpen = v })
}

func (u *UIStore) update(fn func(*UIPreferences)) {
	u.mu.Lock()
	fn(&u.prefs)
	prefs := u.prefs
	u.mu.Unlock()
	if u.storage == nil {
		return
	}
	minimap := prefs.MiniMapVisible
	rec := uiRecord{
		Version:                 uiRecordVersion,
		IsMiniMapVisible:        &minimap,
		IsInlineDiff:            prefs.InlineDiff,
		IsFlowsDialogOpen:       prefs.FlowsDialogOpen,
		IsHelpDialogOpen:        prefs.HelpDialogOpen,
		IsKeybindingsDialogOpen: prefs.KeybindingsDialogOpen,
	}
	if err := u.storage.Save(UIStorageName, rec); err != nil {
		slog.Warn("persist ui preferences", slog.Any("error", err))
	}
}
