// Package contracts holds the JSON bodies exchanged over /api/v1.
package contracts

import (
	"encoding/json"
	"time"
)

type Signature struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Commit struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Body      string    `json:"body"`
	Time      time.Time `json:"time"`
	Author    Signature `json:"author"`
	Committer Signature `json:"committer"`
}

type Branch struct {
	Name string `json:"name"`
	Head Commit `json:"head"`
}

type TaggedCommit struct {
	Tag    string `json:"tag"`
	Commit Commit `json:"commit"`
}

type DiffKind string

const (
	DiffBinary DiffKind = "binary"
	DiffText   DiffKind = "text"
)

type DiffFile struct {
	Path    string  `json:"path"`
	Content *string `json:"content,omitempty"`
}

type Diff struct {
	Old   *DiffFile `json:"old,omitempty"`
	New   *DiffFile `json:"new,omitempty"`
	Kind  DiffKind  `json:"kind"`
	Patch string    `json:"patch"`
}

// Path returns the path of the newer side of the diff, falling back to the
// old path for deletions.
func (d Diff) Path() string {
	if d.New != nil && d.New.Path != "" {
		return d.New.Path
	}
	if d.Old != nil {
		return d.Old.Path
	}
	return ""
}

type ChangeList struct {
	NewFiles      []string `json:"newFiles"`
	ModifiedFiles []string `json:"modifiedFiles"`
	RenamedFiles  []string `json:"renamedFiles"`
	DeletedFiles  []string `json:"deletedFiles"`
}

func (c ChangeList) Empty() bool {
	return len(c.NewFiles) == 0 && len(c.ModifiedFiles) == 0 &&
		len(c.RenamedFiles) == 0 && len(c.DeletedFiles) == 0
}

type RepositoryStatus struct {
	CurrentBranch *string    `json:"currentBranch,omitempty"`
	Head          Commit     `json:"head"`
	Index         ChangeList `json:"index"`
	Worktree      ChangeList `json:"worktree"`
}

type FlowMetadata struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	LastModifiedDate time.Time `json:"lastModifiedDate"`
	NumNodes         int       `json:"numNodes"`
	NumEdges         int       `json:"numEdges"`
}

// ReactFlowState keeps nodes and edges opaque so the server stores whatever
// the editor produced.
type ReactFlowState struct {
	Nodes []json.RawMessage `json:"nodes"`
	Edges []json.RawMessage `json:"edges"`
}

type FlowData struct {
	Name      string         `json:"name"`
	Reactflow ReactFlowState `json:"reactflow"`
}

type FullFlow struct {
	Flow FlowData `json:"flow"`
}

type CreateFlowRequest struct {
	Name string `json:"name"`
}

type CreateFlowResponse struct {
	Flow FlowMetadata `json:"flow"`
}

type ListFlowsResponse struct {
	Flows []FlowMetadata `json:"flows"`
}

type ListCommitsResponse struct {
	Commits []Commit `json:"commits"`
}

type ListDiffsResponse struct {
	Diffs []Diff `json:"diffs"`
}

type ListTagsResponse struct {
	Tags []TaggedCommit `json:"tags"`
}

type ListBranchesResponse struct {
	Branches []Branch `json:"branches"`
}

type StatusResponse struct {
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

type StatusDetailResponse struct {
	Status  int      `json:"status"`
	Reason  string   `json:"reason"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
