package middleware

import (
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/architeacher/devicely/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/devicely/internal/config"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const encodingBrotli = "br"

// Compression negotiates gzip, deflate or brotli for JSON responses.
func Compression(cfg config.Compression) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	compressor := chimiddleware.NewCompressor(cfg.Level, shared.ApplicationJSON)
	compressor.SetEncoder(encodingBrotli, func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	return compressor.Handler
}
