package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/matheuscscp/fairshare/models"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	qrSize    = 256
	qrMaxSize = 1024
)

// qrCode renders the share link of the session as a PNG, so the host can
// show it on their phone. The optional size query sets the side in pixels.
func (s *Server) qrCode(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	size := qrSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > qrMaxSize {
			errorJSON(w, http.StatusBadRequest, "size must be between 64 and %d", qrMaxSize)
			return
		}
		size = n
	}
	png, err := qrcode.Encode(models.ShareLink(s.baseURL, session.Slug), qrcode.Medium, size)
	if err != nil {
		writeError(w, fmt.Errorf("error encoding qr code: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(png)
}
