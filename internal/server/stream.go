package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/matheuscscp/fairshare/services/events"

	"github.com/sirupsen/logrus"
)

// streamEvents pushes the changes of a session as server-sent events so the
// friend pages can refresh their totals.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if _, err := s.store.GetSession(r.Context(), slug); err != nil {
		writeError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, unsubscribe := s.broker.Subscribe(slug)
	defer unsubscribe()
	s.metrics.streams.Inc()
	defer s.metrics.streams.Dec()

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		logrus.WithError(err).Error("error flushing event stream")
		return
	}

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				logrus.WithError(err).Error("error marshaling event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			if e.Type == events.EventSessionDeleted {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
