package analytics

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Handler serves GET /admin/analytics. With ?profile=<name> it returns that
// profile's counters, otherwise all of them.
func Handler(a *Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			data any
			err  error
		)
		if profile := r.URL.Query().Get("profile"); profile != "" {
			data, err = a.FetchProfile(r.Context(), profile)
		} else {
			data, err = a.FetchAll(r.Context())
		}
		if err != nil {
			a.logger.Warn("analytics fetch failed", zap.Error(err))
			http.Error(w, "analytics unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(data)
	}
}
