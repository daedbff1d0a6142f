package server

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/matheuscscp/fairshare/models"
	"github.com/matheuscscp/fairshare/services/events"
	"github.com/matheuscscp/fairshare/storage"

	"github.com/sirupsen/logrus"
)

type (
	joinRequest struct {
		Name string `json:"name"`
	}

	joinResponse struct {
		Participant *models.Participant `json:"participant"`
		Token       string              `json:"token"`
	}

	participantsResponse struct {
		Participants []*models.Participant `json:"participants"`
	}

	paymentResponse struct {
		ParticipantID string              `json:"participant_id"`
		Name          string              `json:"participant_name"`
		Amount        models.PriceInCents `json:"amount_cents"`
		Link          string              `json:"link"`
	}
)

const maxNameLength = 64

func (s *Server) joinSession(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	name := strings.Join(strings.Fields(req.Name), " ")
	if name == "" {
		errorJSON(w, http.StatusBadRequest, "name is required")
		return
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		errorJSON(w, http.StatusBadRequest, "name is longer than %d characters", maxNameLength)
		return
	}

	slug := r.PathValue("slug")
	participant, err := s.store.AddParticipant(r.Context(), slug, name)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := s.issuer.IssueParticipant(participant.SessionID, participant.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.joins.Inc()
	s.publish(r.Context(), events.EventParticipantJoined, slug, participant.ID)
	logrus.WithFields(logrus.Fields{
		"session":     slug,
		"participant": participant.ID,
	}).Info("participant joined")

	if session, err := s.store.GetSession(r.Context(), slug); err == nil {
		if err := s.notifier.ParticipantJoined(r.Context(), session, participant); err != nil {
			logrus.WithError(err).Error("error notifying host of participant")
		}
	}

	writeJSON(w, http.StatusCreated, joinResponse{
		Participant: participant,
		Token:       token,
	})
}

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := s.store.ListParticipants(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participantsResponse{Participants: participants})
}

// paymentLink returns the Beem link that pays the host what the participant
// owes for their current claims. Nothing owed means no link.
func (s *Server) paymentLink(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	session, err := s.store.GetSession(r.Context(), slug)
	if err != nil {
		writeError(w, err)
		return
	}
	participantID := r.PathValue("id")
	allocations, err := s.store.ListAllocations(r.Context(), slug)
	if err != nil {
		writeError(w, err)
		return
	}
	var allocation *models.Allocation
	for _, a := range allocations {
		if a.ParticipantID == participantID {
			allocation = a
			break
		}
	}
	if allocation == nil {
		writeError(w, fmt.Errorf("participant '%s' %w", participantID, storage.ErrNotFound))
		return
	}

	resp := paymentResponse{
		ParticipantID: allocation.ParticipantID,
		Name:          allocation.ParticipantName,
		Amount:        models.ParticipantTotal(session.Items, allocation.Items),
	}
	if resp.Amount > 0 {
		resp.Link = models.PaymentLink(session.BeemHandle, resp.Name, resp.Amount)
	}
	writeJSON(w, http.StatusOK, resp)
}
