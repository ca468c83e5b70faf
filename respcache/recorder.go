package respcache

import (
	"bytes"
	"net/http"
)

// recorder captures the handler's response while streaming it to the
// client unchanged.
type recorder struct {
	http.ResponseWriter

	status  int
	body    bytes.Buffer
	capture bool
}

func newRecorder(w http.ResponseWriter, capture bool) *recorder {
	return &recorder{ResponseWriter: w, status: http.StatusOK, capture: capture}
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.capture {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

// success reports whether the recorded response may populate the cache
// or trigger invalidation.
func (r *recorder) success() bool {
	return r.status < 400
}
