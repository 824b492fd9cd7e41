package simulator

import (
	"net/http"
	"strconv"
)

// Handler serves one simulated endpoint. The counter is released before the
// response is written, which also covers clients that disconnected. Observers
// run only after the response has been flushed.
func (s *Simulator) Handler(p Profile) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.Do(r.Context(), p)

		switch d.Outcome {
		case Failed:
			writeText(w, http.StatusInternalServerError, "Server error")
		case Succeeded:
			writeText(w, http.StatusOK, "Ok")
		case Abandoned:
			// nobody is listening
		}

		s.Notify(r.Context(), d)
	})
}

// writeText sends a complete plain text body and flushes it so the client
// has the full response even if the handler keeps running.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	w.Write([]byte(body))
	_ = http.NewResponseController(w).Flush()
}
