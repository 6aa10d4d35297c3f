package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/architeacher/devicely/internal/adapters/inbound/http/handlers/shared"
	"github.com/cespare/xxhash/v2"
)

// bufferedResponseWriter holds the response back so an ETag can be computed
// over the complete body.
type bufferedResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	body        bytes.Buffer
	wroteHeader bool
}

func (w *bufferedResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}

	w.statusCode = code
	w.wroteHeader = true
}

func (w *bufferedResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	return w.body.Write(b)
}

// GenerateETag returns a strong, quoted ETag for content.
func GenerateETag(content []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(content), 16) + `"`
}

// ConditionalGET sets an ETag on successful GET responses and answers
// 304 Not Modified when the client already holds the representation.
func ConditionalGET() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)

				return
			}

			brw := &bufferedResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(brw, r)

			if brw.statusCode != http.StatusOK {
				w.WriteHeader(brw.statusCode)
				_, _ = w.Write(brw.body.Bytes())

				return
			}

			etag := GenerateETag(brw.body.Bytes())
			w.Header().Set(shared.HeaderETag, etag)

			if etagMatches(r.Header.Get(shared.HeaderIfNoneMatch), etag) {
				w.Header().Del(shared.HeaderContentType)
				w.WriteHeader(http.StatusNotModified)

				return
			}

			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(brw.body.Bytes())
		})
	}
}

// etagMatches applies the weak comparison If-None-Match requires.
func etagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}

	if strings.TrimSpace(ifNoneMatch) == "*" {
		return true
	}

	for candidate := range strings.SplitSeq(ifNoneMatch, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}

	return false
}
