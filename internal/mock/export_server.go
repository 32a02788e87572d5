package mock

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

// ExportServer simulates the bulk-export API for local development and
// tests: job creation, status polling, chunk download, tag listing.
type ExportServer struct {
	mu   sync.Mutex
	jobs map[string]*exportJob

	// PendingPolls is how many status requests report PENDING before a
	// job flips to FINISHED.
	PendingPolls int

	// ReportChunksAsList makes the status payload carry an explicit
	// chunk id list instead of an integer count.
	ReportChunksAsList bool

	// FailJobs makes every job reach the ERROR terminal state.
	FailJobs bool

	// FailChunk, when >= 0, makes that chunk id return HTTP 500.
	FailChunk int

	// LastFilters holds the filter payload of the most recent job request.
	LastFilters map[string]any

	chunks [][]domain.RawRecord
	tags   []domain.TagValue
	server *httptest.Server
}

type exportJob struct {
	id    string
	polls int
}

// NewExportServer builds a simulator serving the given records split into
// chunks of chunkSize.
func NewExportServer(records []domain.RawRecord, chunkSize int) *ExportServer {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	var chunks [][]domain.RawRecord
	for len(records) > 0 {
		n := chunkSize
		if n > len(records) {
			n = len(records)
		}
		chunks = append(chunks, records[:n])
		records = records[n:]
	}

	return &ExportServer{
		jobs:         make(map[string]*exportJob),
		PendingPolls: 1,
		FailChunk:    -1,
		chunks:       chunks,
		tags: []domain.TagValue{
			{Category: "Environment", Value: "Production"},
			{Category: "Environment", Value: "Staging"},
			{Category: "Owner", Value: "Platform"},
		},
	}
}

// Router returns the HTTP routes of the simulated API.
func (s *ExportServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/vulns/export", s.handleInitiate).Methods(http.MethodPost)
	r.HandleFunc("/vulns/export/{exportID}/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/vulns/export/{exportID}/chunks/{chunkID}", s.handleChunk).Methods(http.MethodGet)
	r.HandleFunc("/tags/values", s.handleTags).Methods(http.MethodGet)
	return r
}

// Start runs the simulator on an ephemeral port and returns its base URL.
func (s *ExportServer) Start() string {
	s.server = httptest.NewServer(s.Router())
	slog.Info("mock export server listening", "url", s.server.URL)
	return s.server.URL
}

// Close shuts the simulator down.
func (s *ExportServer) Close() {
	if s.server != nil {
		s.server.Close()
	}
}

func (s *ExportServer) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NumAssets int            `json:"num_assets"`
		Filters   map[string]any `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	job := &exportJob{id: uuid.NewString()}
	s.mu.Lock()
	s.jobs[job.id] = job
	s.LastFilters = req.Filters
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"export_uuid": job.id})
}

func (s *ExportServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["exportID"]

	s.mu.Lock()
	job, ok := s.jobs[id]
	if ok {
		job.polls++
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "unknown export", http.StatusNotFound)
		return
	}

	if job.polls <= s.PendingPolls {
		status := "PENDING"
		if job.polls > 1 {
			status = "PROCESSING"
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": status})
		return
	}
	if s.FailJobs {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ERROR"})
		return
	}

	var chunks any = len(s.chunks)
	if s.ReportChunksAsList {
		ids := make([]int, len(s.chunks))
		for i := range ids {
			ids[i] = i
		}
		chunks = ids
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "FINISHED",
		"chunks_available": chunks,
	})
}

func (s *ExportServer) handleChunk(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	_, ok := s.jobs[vars["exportID"]]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown export", http.StatusNotFound)
		return
	}
	chunkID, err := strconv.Atoi(vars["chunkID"])
	if err != nil || chunkID < 0 || chunkID >= len(s.chunks) {
		http.Error(w, "unknown chunk", http.StatusNotFound)
		return
	}
	if chunkID == s.FailChunk {
		http.Error(w, "chunk unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.chunks[chunkID])
}

func (s *ExportServer) handleTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"values": s.tags})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("mock server encode failed", "error", err)
	}
}
