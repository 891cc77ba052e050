package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/tkaracan/caliper/internal/analyzer"
	"github.com/tkaracan/caliper/internal/graph"
	"github.com/tkaracan/caliper/internal/observability"
	"github.com/tkaracan/caliper/internal/snapshot"
)

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Project    string            `json:"project,omitempty"`
	Edges      []graph.RawEdge   `json:"edges"`
	TypeCounts []graph.TypeCount `json:"type_counts,omitempty"`
	Save       bool              `json:"save,omitempty"`
}

// AnalyzeResponse wraps the analysis result with the snapshot ID when the
// caller asked for the run to be saved.
type AnalyzeResponse struct {
	SnapshotID string           `json:"snapshot_id,omitempty"`
	Result     *analyzer.Result `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AnalyzeServer serves analysis runs over HTTP. Each request is one full
// run; the server holds no state between requests beyond the snapshot store.
type AnalyzeServer struct {
	store   *snapshot.Store
	project string
	metrics *observability.RunMetrics
	audit   *observability.AuditLogger
}

// AnalyzeConfig configures the analyze server. Store may be nil, in which
// case save requests are rejected.
type AnalyzeConfig struct {
	Store   *snapshot.Store
	Project string
	Metrics *observability.RunMetrics
	Audit   *observability.AuditLogger
}

// NewAnalyzeServer creates an analyze server.
func NewAnalyzeServer(cfg *AnalyzeConfig) *AnalyzeServer {
	s := &AnalyzeServer{}
	if cfg != nil {
		s.store = cfg.Store
		s.project = cfg.Project
		s.metrics = cfg.Metrics
		s.audit = cfg.Audit
	}
	if s.project == "" {
		s.project = "default"
	}
	return s
}

// Register mounts the analyze endpoint on a mux.
func (s *AnalyzeServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("/analyze", s.handleAnalyze)
}

func (s *AnalyzeServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Save && s.store == nil {
		s.writeError(w, http.StatusBadRequest, "snapshot store not configured")
		return
	}

	start := time.Now()
	if s.audit != nil {
		s.audit.LogRunStart(len(req.Edges), len(req.TypeCounts))
	}

	result, err := analyzer.Run(r.Context(), analyzer.Input{
		Edges:      req.Edges,
		TypeCounts: req.TypeCounts,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RunErrors.Inc()
		}
		if s.audit != nil {
			s.audit.LogRunError(err)
		}
		var integrity *graph.DataIntegrityError
		if errors.As(err, &integrity) {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.metrics != nil {
		s.metrics.RunsTotal.Inc()
		s.metrics.RunDuration.ObserveDuration(start)
		s.metrics.ModulesAnalyzed.Set(float64(result.Graph.ModuleCount()))
		s.metrics.CyclesFound.Set(float64(len(result.Cycles)))
		s.metrics.ViolationsFound.Set(float64(len(result.Violations)))
	}
	if s.audit != nil {
		s.audit.LogRunComplete(result.Graph.ModuleCount(), len(result.Cycles), len(result.Violations), time.Since(start))
	}

	resp := AnalyzeResponse{Result: result}
	if req.Save {
		project := req.Project
		if project == "" {
			project = s.project
		}
		snap, err := snapshot.NewSnapshot(project, analyzer.Input{
			Edges:      req.Edges,
			TypeCounts: req.TypeCounts,
		}, result)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "create snapshot: "+err.Error())
			return
		}
		if err := s.store.Save(snap, result); err != nil {
			s.writeError(w, http.StatusInternalServerError, "save snapshot: "+err.Error())
			return
		}
		if s.audit != nil {
			s.audit.LogSnapshotSave(snap.ID)
		}
		resp.SnapshotID = snap.ID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("encode analyze response: %v", err)
	}
}

func (s *AnalyzeServer) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
