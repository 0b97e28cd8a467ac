// Package introspect serves the node's running counters and track
// state as JSON over plain net/http, the same ServeMux+encoding/json
// convention the teacher's own admin API uses, for the external
// control utility mentioned alongside the sensor's command protocol to
// query node health without needing a gRPC client.
package introspect

import (
	"encoding/json"
	"net/http"
)

// Counters is the set of running counts the error-handling design
// requires a metrics/log stream to expose.
type Counters struct {
	FramesReceived uint64 `json:"frames_received"`
	CrcFailures    uint64 `json:"crc_failures"`
	PacketsSkipped uint64 `json:"packets_skipped"`
	TracksActive   uint64 `json:"tracks_active"`
}

// CounterSource is implemented by whatever owns the running totals —
// typically the orchestrator, aggregating the framer, assembler, and
// tracker's own Stats snapshots.
type CounterSource interface {
	Counters() Counters
}

// TrackInfo is one track's current state, as exposed over /tracks.
type TrackInfo struct {
	ID              string  `json:"id"`
	State           string  `json:"state"`
	CX              float32 `json:"cx"`
	CY              float32 `json:"cy"`
	Hits            int     `json:"hits"`
	Age             int     `json:"age"`
	TimeSinceUpdate int     `json:"time_since_update"`
}

// TrackSource is implemented by whatever owns the current track table.
type TrackSource interface {
	Tracks() []TrackInfo
}

// Server answers /counters, /tracks, and /info as JSON.
type Server struct {
	counters CounterSource
	tracks   TrackSource
	info     map[string]any
}

// New builds a Server. tracks may be nil if clustering/tracking is
// disabled, in which case /tracks always returns an empty list.
func New(counters CounterSource, tracks TrackSource, info map[string]any) *Server {
	return &Server{counters: counters, tracks: tracks, info: info}
}

// ServeMux returns the handler tree for this service, to be mounted by
// the caller's own http.Server.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/counters", s.handleCounters)
	mux.HandleFunc("/tracks", s.handleTracks)
	mux.HandleFunc("/info", s.handleInfo)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	json.NewEncoder(w).Encode(s.counters.Counters())
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.tracks == nil {
		json.NewEncoder(w).Encode([]TrackInfo{})
		return
	}
	json.NewEncoder(w).Encode(s.tracks.Tracks())
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	json.NewEncoder(w).Encode(s.info)
}
