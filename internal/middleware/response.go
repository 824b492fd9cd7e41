package middleware

import "net/http"

// statusCapture records the status code written by the wrapped handler.
type statusCapture struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
	bytes      int
}

func newStatusCapture(w http.ResponseWriter) *statusCapture {
	return &statusCapture{ResponseWriter: w, statusCode: http.StatusOK}
}

func (sc *statusCapture) WriteHeader(code int) {
	if !sc.wrote {
		sc.statusCode = code
		sc.wrote = true
	}
	sc.ResponseWriter.WriteHeader(code)
}

func (sc *statusCapture) Write(b []byte) (int, error) {
	sc.wrote = true
	n, err := sc.ResponseWriter.Write(b)
	sc.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sc *statusCapture) Unwrap() http.ResponseWriter {
	return sc.ResponseWriter
}

// status reports the code seen by the client. A handler that wrote nothing
// (the client went away) is reported as 499.
func (sc *statusCapture) status() int {
	if !sc.wrote {
		return StatusClientClosedRequest
	}
	return sc.statusCode
}

// StatusClientClosedRequest marks requests whose client disconnected before
// a response was written.
const StatusClientClosedRequest = 499
