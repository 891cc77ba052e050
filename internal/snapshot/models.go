// Package snapshot provides content-addressable storage for analysis runs,
// so coupling metrics can be tracked and diffed across time.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/tkaracan/caliper/internal/analyzer"
)

// Snapshot is a point-in-time capture of one analysis run. The result body
// is stored as a content-addressed object; the snapshot itself carries the
// headline numbers so listings never need to load full results.
type Snapshot struct {
	ID              string            `json:"id"`
	ParentID        string            `json:"parent_id,omitempty"`
	Tag             string            `json:"tag,omitempty"`
	Description     string            `json:"description,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	Project         string            `json:"project"`
	InputHash       string            `json:"input_hash"`
	ResultHash      string            `json:"result_hash"`
	ModuleCount     int               `json:"module_count"`
	DependencyCount int               `json:"dependency_count"`
	CycleCount      int               `json:"cycle_count"`
	ViolationCount  int               `json:"violation_count"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// SnapshotIndex is a lightweight listing of all snapshots for fast lookup.
type SnapshotIndex struct {
	Snapshots []SnapshotSummary `json:"snapshots"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SnapshotSummary is the minimal info for listing snapshots.
type SnapshotSummary struct {
	ID             string    `json:"id"`
	ParentID       string    `json:"parent_id,omitempty"`
	Tag            string    `json:"tag,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Project        string    `json:"project"`
	ModuleCount    int       `json:"module_count"`
	CycleCount     int       `json:"cycle_count"`
	ViolationCount int       `json:"violation_count"`
}

// NewSnapshot captures a completed run. The input hash identifies what was
// analyzed, the result hash identifies what came out; identical inputs always
// produce identical result hashes because the analyzer is deterministic.
func NewSnapshot(project string, input analyzer.Input, result *analyzer.Result) (*Snapshot, error) {
	inputData, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	resultData, err := result.JSON()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		CreatedAt:       time.Now().UTC(),
		Project:         project,
		InputHash:       ContentHash(inputData),
		ResultHash:      ContentHash(resultData),
		ModuleCount:     result.Graph.ModuleCount(),
		DependencyCount: result.Graph.DependencyCount(),
		CycleCount:      len(result.Cycles),
		ViolationCount:  len(result.Violations),
	}
	snap.ID = generateSnapshotID(snap)
	return snap, nil
}

// ContentHash computes SHA-256 of content.
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

func generateSnapshotID(snap *Snapshot) string {
	data, _ := json.Marshal(struct {
		Time    int64  `json:"t"`
		Project string `json:"p"`
		Result  string `json:"r"`
	}{
		Time:    snap.CreatedAt.UnixNano(),
		Project: snap.Project,
		Result:  snap.ResultHash,
	})
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:8]) // Short 16-char hex ID
}

// Summary returns a lightweight summary of this snapshot.
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:             s.ID,
		ParentID:       s.ParentID,
		Tag:            s.Tag,
		CreatedAt:      s.CreatedAt,
		Project:        s.Project,
		ModuleCount:    s.ModuleCount,
		CycleCount:     s.CycleCount,
		ViolationCount: s.ViolationCount,
	}
}
