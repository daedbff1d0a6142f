package fairshare

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubMessageDecoding(t *testing.T) {
	var m PubSubMessage
	err := json.Unmarshal([]byte(`{"attributes":{"eventType":"SECRET_ROTATE","secretId":"projects/p/secrets/jwt"},"data":"c3RhcnQ="}`), &m)
	require.NoError(t, err)
	assert.Equal(t, "SECRET_ROTATE", m.Attributes.EventType)
	assert.Equal(t, "projects/p/secrets/jwt", m.Attributes.SecretID)
	assert.Equal(t, []byte("start"), m.Data)
}

func TestRotateSecret(t *testing.T) {
	var rotated []string
	boom := errors.New("boom")
	orig := rotate
	defer func() { rotate = orig }()
	rotate = func(ctx context.Context, secretID string) error {
		rotated = append(rotated, secretID)
		if secretID == "bad" {
			return boom
		}
		return nil
	}

	ctx := context.Background()
	require.NoError(t, RotateSecret(ctx, PubSubMessage{Attributes: PubSubAttributes{EventType: "SECRET_CREATE", SecretID: "a"}}))
	require.NoError(t, RotateSecret(ctx, PubSubMessage{Attributes: PubSubAttributes{EventType: eventTypeSecretRotate, SecretID: "b"}}))
	assert.ErrorIs(t, RotateSecret(ctx, PubSubMessage{Attributes: PubSubAttributes{EventType: eventTypeSecretRotate, SecretID: "bad"}}), boom)
	assert.Equal(t, []string{"b", "bad"}, rotated)
}

func TestAPIRetriesFailedStart(t *testing.T) {
	origBuild := buildAPI
	defer func() {
		buildAPI = origBuild
		apiHandler = nil
	}()

	builds := 0
	buildAPI = func(ctx context.Context) (http.Handler, error) {
		builds++
		if builds == 1 {
			return nil, errors.New("database unavailable")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}), nil
	}

	serve := func() int {
		rec := httptest.NewRecorder()
		API(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusInternalServerError, serve())
	assert.Equal(t, http.StatusTeapot, serve())
	assert.Equal(t, http.StatusTeapot, serve())
	assert.Equal(t, 2, builds, "built once more after the failure, then reused")
}
