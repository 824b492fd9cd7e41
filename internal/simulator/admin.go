package simulator

import (
	"encoding/json"
	"net/http"
)

// ProfileStatus shows a profile and where its curves sit at the current
// in-flight count.
type ProfileStatus struct {
	Profile
	ErrorChance float64 `json:"error_chance"`
	DelayMs     float64 `json:"delay_ms"`
}

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	Stats    Stats           `json:"stats"`
	Profiles []ProfileStatus `json:"profiles"`
}

// Status builds the status body for the given profiles.
func (s *Simulator) Status(profiles []Profile) StatusResponse {
	st := s.Stats()
	resp := StatusResponse{
		Stats:    st,
		Profiles: make([]ProfileStatus, 0, len(profiles)),
	}
	for _, p := range profiles {
		resp.Profiles = append(resp.Profiles, ProfileStatus{
			Profile:     p,
			ErrorChance: p.ErrorChance(st.InFlight),
			DelayMs:     p.DelayMillis(st.InFlight),
		})
	}
	return resp
}

// StatusHandler handles GET /admin/simulator/status.
func StatusHandler(s *Simulator, profiles []Profile) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(s.Status(profiles))
	}
}
