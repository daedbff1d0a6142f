package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/matheuscscp/fairshare/internal/auth"
	"github.com/matheuscscp/fairshare/models"
	"github.com/matheuscscp/fairshare/services/events"

	"github.com/sirupsen/logrus"
)

type (
	createSessionRequest struct {
		BeemHandle string         `json:"beem_handle"`
		Items      models.Receipt `json:"items"`
		// Image optionally archives the receipt photo with the session.
		Image string `json:"image,omitempty"`
	}

	sessionResponse struct {
		Session   *models.Session `json:"session"`
		ShareLink string          `json:"share_link"`
		HostToken string          `json:"host_token,omitempty"`
	}

	replaceItemsRequest struct {
		Items models.Receipt `json:"items"`
	}

	addItemRequest struct {
		Name  string              `json:"item_name"`
		Price models.PriceInCents `json:"price_cents"`
	}
)

// authorize checks the bearer token of r against the session. Host-only
// operations pass host=true, participant-only ones host=false.
func (s *Server) authorize(r *http.Request, session *models.Session, host bool) (*auth.Principal, error) {
	principal, err := s.issuer.VerifyRequest(r)
	if err != nil {
		return nil, err
	}
	if principal.SessionID != session.ID {
		return nil, fmt.Errorf("%w: token belongs to another session", errForbidden)
	}
	if principal.IsHost() != host {
		if host {
			return nil, fmt.Errorf("%w: only the host can do this", errForbidden)
		}
		return nil, fmt.Errorf("%w: only participants can do this", errForbidden)
	}
	return principal, nil
}

// hostSession loads the session of the request and requires the host token.
func (s *Server) hostSession(r *http.Request) (*models.Session, error) {
	session, err := s.store.GetSession(r.Context(), r.PathValue("slug"))
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(r, session, true); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Server) publish(ctx context.Context, t events.EventType, slug, participantID string) {
	s.broker.Publish(ctx, events.Event{
		Type:          t,
		Session:       slug,
		ParticipantID: participantID,
	})
}

func (s *Server) sessionResponse(session *models.Session) sessionResponse {
	return sessionResponse{
		Session:   session,
		ShareLink: models.ShareLink(s.baseURL, session.Slug),
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	handle := strings.TrimSpace(req.BeemHandle)
	if handle == "" {
		errorJSON(w, http.StatusBadRequest, "beem_handle is required")
		return
	}
	var image []byte
	var mimeType string
	if req.Image != "" {
		var err error
		if image, mimeType, err = decodeImage(req.Image, s.maxImageBytes); err != nil {
			writeError(w, err)
			return
		}
	}

	session, err := s.store.CreateSession(r.Context(), handle, req.Items.Normalize())
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := s.issuer.IssueHost(session.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.sessions.Inc()
	if image != nil {
		name, err := s.images.Store(r.Context(), session.ID, mimeType, image)
		if err != nil {
			logrus.WithError(err).WithField("session", session.Slug).Error("error archiving receipt image")
		} else if name != "" {
			logrus.WithField("object", name).Info("receipt image archived")
		}
	}
	logrus.WithFields(logrus.Fields{
		"session": session.Slug,
		"items":   len(session.Items),
	}).Info("session created")

	resp := s.sessionResponse(session)
	resp.HostToken = token
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionResponse(session))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.hostSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeleteSession(r.Context(), session.Slug); err != nil {
		writeError(w, err)
		return
	}
	if err := s.images.Delete(r.Context(), session.ID); err != nil {
		logrus.WithError(err).WithField("session", session.Slug).Error("error deleting receipt image")
	}
	s.publish(r.Context(), events.EventSessionDeleted, session.Slug, "")
	logrus.WithField("session", session.Slug).Info("session deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) replaceItems(w http.ResponseWriter, r *http.Request) {
	session, err := s.hostSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req replaceItemsRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	session, err = s.store.ReplaceItems(r.Context(), session.Slug, req.Items.Normalize())
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(r.Context(), events.EventItemsUpdated, session.Slug, "")
	writeJSON(w, http.StatusOK, s.sessionResponse(session))
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	s.editItems(w, r, http.StatusCreated, func(r *http.Request) error {
		return parseJSONBody(r, &req)
	}, func(items models.Receipt) (models.Receipt, error) {
		items, _ = items.Add(req.Name, req.Price)
		return items, nil
	})
}

func (s *Server) editItem(w http.ResponseWriter, r *http.Request) {
	var edit models.ItemEdit
	s.editItems(w, r, http.StatusOK, func(r *http.Request) error {
		return parseJSONBody(r, &edit)
	}, func(items models.Receipt) (models.Receipt, error) {
		return items, items.Apply(r.PathValue("id"), &edit)
	})
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	s.editItems(w, r, http.StatusOK, nil, func(items models.Receipt) (models.Receipt, error) {
		return items.Remove(r.PathValue("id"))
	})
}

// editItems authorizes the host, parses the body with parse when set and
// applies edit to the stored items.
func (s *Server) editItems(w http.ResponseWriter, r *http.Request, status int,
	parse func(r *http.Request) error, edit func(models.Receipt) (models.Receipt, error)) {

	session, err := s.hostSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if parse != nil {
		if err := parse(r); err != nil {
			writeError(w, err)
			return
		}
	}
	session, err = s.store.EditItems(r.Context(), session.Slug, edit)
	if err != nil {
		if r.PathValue("id") != "" && isUnknownItem(err) {
			errorJSON(w, http.StatusNotFound, "%s", err.Error())
			return
		}
		writeError(w, err)
		return
	}
	s.publish(r.Context(), events.EventItemsUpdated, session.Slug, "")
	writeJSON(w, status, s.sessionResponse(session))
}
