package placeholder

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"
)

const ContentType = "image/svg+xml"

type PlaceholderService interface {
	ServePlaceholder(w http.ResponseWriter, r *http.Request)
}

type Server struct {
	logger  *slog.Logger
	modTime time.Time
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logger, modTime: time.Now()}
}

// ServePlaceholder renders the image described by the request's height,
// width and query parameters. Conditional and HEAD requests are handled
// by http.ServeContent using a content-derived ETag.
func (s *Server) ServePlaceholder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ParseParams(q.Get("width"), q.Get("height"), q.Get("query"))
	body := Render(params)

	sum := sha256.Sum256(body)
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("ETag", `"`+hex.EncodeToString(sum[:8])+`"`)

	if s.logger != nil {
		s.logger.Debug("serving placeholder", "width", params.Width, "height", params.Height)
	}

	http.ServeContent(w, r, "placeholder.svg", s.modTime, bytes.NewReader(body))
}
