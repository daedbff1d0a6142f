package fairshare

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/matheuscscp/fairshare/config"
	"github.com/matheuscscp/fairshare/internal/app"
	_ "github.com/matheuscscp/fairshare/logging"

	"github.com/sirupsen/logrus"
)

var (
	apiMu      sync.Mutex
	apiHandler http.Handler

	buildAPI = func(ctx context.Context) (http.Handler, error) {
		conf, err := config.Load()
		if err != nil {
			return nil, err
		}
		a, err := app.New(ctx, conf)
		if err != nil {
			return nil, err
		}
		return a.Server, nil
	}
)

// apiServer returns the wired app, building it on first use. A failed build
// is retried by the next request.
func apiServer(ctx context.Context) (http.Handler, error) {
	apiMu.Lock()
	defer apiMu.Unlock()
	if apiHandler != nil {
		return apiHandler, nil
	}
	h, err := buildAPI(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing api: %w", err)
	}
	apiHandler = h
	return h, nil
}

// API is an HTTP Cloud Function serving the whole API. The app is wired on
// the first successful request and reused by the instance afterwards.
func API(w http.ResponseWriter, r *http.Request) {
	h, err := apiServer(context.Background())
	if err != nil {
		logrus.WithError(err).Error("error serving api")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	h.ServeHTTP(w, r)
}
