package server

import (
	"context"
	"net/http"

	"github.com/matheuscscp/fairshare/models"
	"github.com/matheuscscp/fairshare/services/events"

	"github.com/sirupsen/logrus"
)

type (
	allocationsResponse struct {
		Allocations []*models.Allocation `json:"allocations"`
	}

	updateAllocationRequest struct {
		Items []models.ClaimedItem `json:"items"`
	}

	updateAllocationResponse struct {
		Allocation *models.Allocation `json:"allocation"`
		Summary    *models.Summary    `json:"summary"`
	}
)

func (s *Server) summarize(ctx context.Context, slug string) (*models.Session, *models.Summary, error) {
	session, err := s.store.GetSession(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	allocations, err := s.store.ListAllocations(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	return session, models.Summarize(session.Items, allocations), nil
}

func (s *Server) listAllocations(w http.ResponseWriter, r *http.Request) {
	allocations, err := s.store.ListAllocations(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, allocationsResponse{Allocations: allocations})
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	_, summary, err := s.summarize(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// updateAllocation replaces the claims of the participant holding the token.
// Over-claims are rejected with 409 and leave the stored claims untouched.
func (s *Server) updateAllocation(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	session, err := s.store.GetSession(r.Context(), slug)
	if err != nil {
		writeError(w, err)
		return
	}
	principal, err := s.authorize(r, session, false)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateAllocationRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	update, err := s.store.UpsertAllocation(r.Context(), slug, principal.ParticipantID, req.Items, models.ValidateClaim)
	if err != nil {
		s.metrics.allocations.WithLabelValues("rejected").Inc()
		writeError(w, err)
		return
	}
	s.metrics.allocations.WithLabelValues("ok").Inc()
	s.publish(r.Context(), events.EventAllocationUpdated, slug, principal.ParticipantID)

	if update.Completed {
		logrus.WithField("session", slug).Info("receipt fully claimed")
		if err := s.notifier.FullyClaimed(r.Context(), session, update.Summary); err != nil {
			logrus.WithError(err).Error("error notifying host of fully claimed receipt")
		}
	}

	writeJSON(w, http.StatusOK, updateAllocationResponse{
		Allocation: update.Allocation,
		Summary:    update.Summary,
	})
}
