// Package edgelist implements the extractor contract for pre-extracted
// dependency data: JSON Lines files where each line is either a dependency
// pair or a type-count record. It exists so the full pipeline can run on the
// output of any external per-language scanner without Caliper parsing source.
package edgelist

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tkaracan/caliper/internal/extract"
	"github.com/tkaracan/caliper/internal/graph"
)

// Extractor reads JSONL edge-list files.
type Extractor struct{}

// New creates an edge-list extractor.
func New() *Extractor { return &Extractor{} }

// Name returns the extractor identifier.
func (e *Extractor) Name() string { return "edgelist" }

// record is one JSONL line. A line with "module" set is a type-count record;
// a line with "from"/"to" set is a dependency pair.
type record struct {
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	Module        string `json:"module,omitempty"`
	TotalTypes    int    `json:"total_types,omitempty"`
	AbstractTypes int    `json:"abstract_types,omitempty"`
}

// Extract reads the source file and returns its fragment.
func (e *Extractor) Extract(ctx context.Context, source extract.Source) (extract.Fragment, error) {
	f, err := os.Open(source.Path)
	if err != nil {
		return extract.Fragment{}, fmt.Errorf("open edge list: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a JSONL edge-list stream.
func Read(r io.Reader) (extract.Fragment, error) {
	var out extract.Fragment
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(b, &rec); err != nil {
			return extract.Fragment{}, fmt.Errorf("edge list: invalid JSONL at line %d: %w", lineNo, err)
		}
		switch {
		case rec.Module != "":
			out.TypeCounts = append(out.TypeCounts, graph.TypeCount{
				Module:        rec.Module,
				TotalTypes:    rec.TotalTypes,
				AbstractTypes: rec.AbstractTypes,
			})
		case rec.From != "" && rec.To != "":
			out.Edges = append(out.Edges, graph.RawEdge{From: rec.From, To: rec.To})
		default:
			return extract.Fragment{}, fmt.Errorf("edge list: line %d is neither an edge nor a type-count record", lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return extract.Fragment{}, err
	}
	return out, nil
}
