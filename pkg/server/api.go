package server

import (
	"encoding/json"
	"net/http"

	"github.com/Xenebia/Radar-Scan/pkg/host"
)

// HostAPIResponse is the JSON shape of a single host.
type HostAPIResponse struct {
	Address   string        `json:"address"`
	Hostname  string        `json:"hostname,omitempty"`
	Position  host.Position `json:"position"`
	Online    bool          `json:"online"`
	Fade      int           `json:"fade"`
	Status    HostStatus    `json:"status"`
	LatencyUs int64         `json:"latency_us"`
	LastSeen  int64         `json:"lastseen"`
}

// RadarAPIResponse is the JSON shape of the whole radar.
type RadarAPIResponse struct {
	Angle  float64           `json:"angle"`
	Radius int               `json:"radius"`
	Hosts  []HostAPIResponse `json:"hosts"`
}

// RadiusRequest is the body of a radius change.
type RadiusRequest struct {
	Radius *int `json:"radius"`
}

// RadiusResponse reports the radius in effect.
type RadiusResponse struct {
	Radius int `json:"radius"`
}

func hostResponse(h host.Host) HostAPIResponse {
	resp := HostAPIResponse{
		Address:   h.Address,
		Hostname:  h.Hostname,
		Position:  h.Position,
		Online:    h.Online,
		Fade:      h.Fade,
		Status:    computeHostStatus(h),
		LatencyUs: h.Latency.Microseconds(),
	}
	if !h.LastSeen.IsZero() {
		resp.LastSeen = h.LastSeen.Unix()
	}
	return resp
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	snapshot := s.registry.Snapshot()
	hosts := make([]HostAPIResponse, 0, len(snapshot))
	for _, h := range snapshot {
		hosts = append(hosts, hostResponse(h))
	}

	writeJSON(w, http.StatusOK, RadarAPIResponse{
		Angle:  s.state.Angle(),
		Radius: s.state.Radius(),
		Hosts:  hosts,
	})
}

func (s *Server) handleHostAPI(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	h, ok := s.registry.Get(address)
	if !ok {
		http.Error(w, "Host not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, hostResponse(h))
}

func (s *Server) handleGetRadius(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RadiusResponse{Radius: s.state.Radius()})
}

func (s *Server) handleSetRadius(w http.ResponseWriter, r *http.Request) {
	var req RadiusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Radius == nil {
		http.Error(w, "Missing radius", http.StatusBadRequest)
		return
	}

	s.SetRadius(*req.Radius)
	writeJSON(w, http.StatusOK, RadiusResponse{Radius: s.state.Radius()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
