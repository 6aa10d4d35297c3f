package middleware

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
)

// ResponseRecorder passes the response through while remembering its status
// and size. With a body buffer it also keeps a copy of what was written.
type ResponseRecorder struct {
	http.ResponseWriter
	status      int
	size        uint64
	wroteHeader bool
	body        *bytes.Buffer
}

func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, status: http.StatusOK}
}

// NewCapturingResponseRecorder also copies the body.
func NewCapturingResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	rec := NewResponseRecorder(w)
	rec.body = &bytes.Buffer{}

	return rec
}

func (w *ResponseRecorder) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}

	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	n, err := w.ResponseWriter.Write(b)
	w.size += uint64(n)

	if w.body != nil {
		w.body.Write(b[:n])
	}

	return n, err
}

func (w *ResponseRecorder) Status() int {
	return w.status
}

func (w *ResponseRecorder) Size() uint64 {
	return w.size
}

// Body is nil unless the recorder was built to capture it.
func (w *ResponseRecorder) Body() []byte {
	if w.body == nil {
		return nil
	}

	return w.body.Bytes()
}

// FirstHeaderValues flattens the response headers to their first value.
func (w *ResponseRecorder) FirstHeaderValues() map[string]string {
	headers := make(map[string]string, len(w.Header()))

	for name, values := range w.Header() {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	return headers
}

func (w *ResponseRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *ResponseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}

	return nil, nil, http.ErrNotSupported
}

func (w *ResponseRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
