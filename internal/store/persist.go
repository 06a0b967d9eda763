package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/debug-flow/debug-flow/internal/graph"
)

const (
	FlowStorageName = "debug-flow-flow-storage"
	UIStorageName   = "debug-flow-ui-storage"

	flowRecordVersion = 1
	uiRecordVersion   = 1
)

var ErrUnsupportedVersion = errors.New("unsupported record version")

// Storage keeps named records. Load reports false when no record exists.
type Storage interface {
	Load(name string, v any) (bool, error)
	Save(name string, v any) error
}

var validRecordName = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// FileStorage writes every record as a JSON file inside a directory.
type FileStorage struct {
	mu  sync.Mutex
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(name string) (string, error) {
	if !validRecordName.MatchString(name) {
		return "", fmt.Errorf("invalid record name %q", name)
	}
	return filepath.Join(f.dir, name+".json"), nil
}

func (f *FileStorage) Load(name string, v any) (bool, error) {
	p, err := f.path(name)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// Save replaces the record atomically.
func (f *FileStorage) Save(name string, v any) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// MemoryStorage keeps records in memory as encoded JSON.
type MemoryStorage struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: map[string][]byte{}}
}

func (m *MemoryStorage) Load(name string, v any) (bool, error) {
	m.mu.Lock()
	data, ok := m.records[name]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func (m *MemoryStorage) Save(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records[name] = data
	m.mu.Unlock()
	return nil
}

type flowRecord struct {
	Version           int           `json:"version"`
	Nodes             []graph.Node  `json:"nodes"`
	Edges             []graph.Edge  `json:"edges"`
	CurrentFlow       *FlowRef      `json:"currentFlow"`
	HasUnsavedChanges bool          `json:"hasUnsavedChanges"`
	DialogNodeData    *dialogRecord `json:"dialogNodeData"`
}

type dialogRecord struct {
	Type DialogKind   `json:"type"`
	Data *PendingNode `json:"data"`
}

func newFlowRecord(d *document) flowRecord {
	rec := flowRecord{
		Version:           flowRecordVersion,
		Nodes:             d.nodes,
		Edges:             d.edges,
		CurrentFlow:       d.current,
		HasUnsavedChanges: d.dirty,
	}
	// Edit dialogs are not persisted.
	if d.dialog != nil && d.dialog.Kind == DialogPending {
		rec.DialogNodeData = &dialogRecord{Type: DialogPending, Data: d.dialog.Pending}
	}
	if rec.Nodes == nil {
		rec.Nodes = []graph.Node{}
	}
	if rec.Edges == nil {
		rec.Edges = []graph.Edge{}
	}
	return rec
}

func (r flowRecord) apply(d *document) error {
	if r.Version > flowRecordVersion {
		return fmt.Errorf("%s version %d: %w", FlowStorageName, r.Version, ErrUnsupportedVersion)
	}
	d.nodes = r.Nodes
	d.edges = r.Edges
	d.current = r.CurrentFlow
	d.dirty = r.HasUnsavedChanges
	if r.DialogNodeData != nil && r.DialogNodeData.Type == DialogPending && r.DialogNodeData.Data != nil {
		d.dialog = &DialogNode{Kind: DialogPending, Pending: r.DialogNodeData.Data}
	}
	return nil
}

type uiRecord struct {
	Version                 int   `json:"version"`
	IsMiniMapVisible        *bool `json:"isMiniMapVisible"`
	IsInlineDiff            bool  `json:"isInlineDiff"`
	IsFlowsDialogOpen       bool  `json:"isFlowsDialogOpen"`
	IsHelpDialogOpen        bool  `json:"isHelpDialogOpen"`
	IsKeybindingsDialogOpen bool  `json:"isKeybindingsDialogOpen"`
}
