package server

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/matheuscscp/fairshare/models"

	"github.com/sirupsen/logrus"
)

type (
	extractRequest struct {
		// Image is a data URL or plain base64.
		Image string `json:"image"`
	}

	followupRequest struct {
		Items  models.Receipt `json:"items"`
		Prompt string         `json:"prompt"`
	}

	itemsResponse struct {
		Items models.Receipt `json:"items"`
	}
)

const dataURLPrefix = "data:"

// decodeImage accepts "data:<mime>;base64,<payload>" or bare base64, in which
// case the type is sniffed from the bytes.
func decodeImage(s string, maxBytes int64) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", fmt.Errorf("%w: image is required", errBadRequest)
	}
	var mimeType string
	if strings.HasPrefix(s, dataURLPrefix) {
		header, payload, ok := strings.Cut(s[len(dataURLPrefix):], ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("%w: image must be a base64 data url", errBadRequest)
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		s = payload
	}
	if int64(base64.StdEncoding.DecodedLen(len(s))) > maxBytes+2 {
		return nil, "", fmt.Errorf("%w: limit is %d bytes", errTooLarge, maxBytes)
	}
	image, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("%w: error decoding image: %v", errBadRequest, err)
	}
	if int64(len(image)) > maxBytes {
		return nil, "", fmt.Errorf("%w: limit is %d bytes", errTooLarge, maxBytes)
	}
	if len(image) == 0 {
		return nil, "", fmt.Errorf("%w: image is empty", errBadRequest)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("%w: '%s' is not an image", errBadRequest, mimeType)
	}
	return image, mimeType, nil
}

func (s *Server) extractReceipt(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	image, mimeType, err := decodeImage(req.Image, s.maxImageBytes)
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := s.extractor.Extract(r.Context(), image, mimeType)
	if err != nil {
		s.metrics.extractions.WithLabelValues("error").Inc()
		writeError(w, fmt.Errorf("error extracting receipt: %w", err))
		return
	}
	result := "ok"
	if len(items) == 0 {
		result = "empty"
	}
	s.metrics.extractions.WithLabelValues(result).Inc()
	logrus.WithField("items", len(items)).Info("receipt extracted")

	writeJSON(w, http.StatusOK, itemsResponse{Items: items})
}

func (s *Server) followupReceipt(w http.ResponseWriter, r *http.Request) {
	var req followupRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	items, err := s.extractor.Followup(r.Context(), req.Items.Normalize(), req.Prompt)
	if err != nil {
		writeError(w, fmt.Errorf("error correcting receipt: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: items})
}
