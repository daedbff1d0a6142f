package app

import (
	"context"
	"fmt"

	"github.com/matheuscscp/fairshare/config"
	"github.com/matheuscscp/fairshare/internal/auth"
	openaipkg "github.com/matheuscscp/fairshare/internal/openai"
	"github.com/matheuscscp/fairshare/internal/server"
	"github.com/matheuscscp/fairshare/logging"
	"github.com/matheuscscp/fairshare/services/events"
	"github.com/matheuscscp/fairshare/services/images"
	"github.com/matheuscscp/fairshare/services/notify"
	"github.com/matheuscscp/fairshare/services/secrets"
	"github.com/matheuscscp/fairshare/storage"

	"github.com/sirupsen/logrus"
)

// App holds the wired server and everything that must be closed with it.
type App struct {
	Config *config.Config
	Server *server.Server

	closers []func()
}

// New loads secrets, opens the store and wires the services into a server.
func New(ctx context.Context, conf *config.Config) (a *App, err error) {
	if conf.LogLevel != "" {
		if err := logging.SetLevel(conf.LogLevel); err != nil {
			return nil, err
		}
	}

	a = &App{Config: conf}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if conf.NeedsSecretManager() {
		secretsService, err := secrets.NewService(ctx)
		if err != nil {
			return nil, fmt.Errorf("error creating secrets service: %w", err)
		}
		a.closers = append(a.closers, secretsService.Close)
		if err := conf.ResolveSecrets(ctx, secretsService); err != nil {
			return nil, err
		}
	} else if err := conf.ResolveSecrets(ctx, nil); err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, conf.Database.Driver, conf.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("error opening store: %w", err)
	}
	a.closers = append(a.closers, func() { store.Close() })

	eventsService, err := events.NewService(ctx, conf.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("error creating events service: %w", err)
	}
	a.closers = append(a.closers, eventsService.Close)

	imagesService, err := images.NewService(ctx, conf.Images.Bucket)
	if err != nil {
		return nil, fmt.Errorf("error creating images service: %w", err)
	}
	a.closers = append(a.closers, imagesService.Close)

	notifier, err := notify.NewService(conf.Telegram.Token, conf.Telegram.ChatID, conf.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("error creating notify service: %w", err)
	}

	if conf.OpenAI.Token == "" {
		logrus.Warn("no openai token configured, receipt extraction will fail")
	}

	a.Server = server.New(server.Deps{
		Store:         store,
		Extractor:     openaipkg.NewExtractor(conf.OpenAI.Token, conf.OpenAI.Model, conf.OpenAI.MaxTokens),
		Issuer:        auth.NewIssuer(conf.JWT.Key, conf.JWT.TTL),
		Broker:        events.NewBroker(eventsService, conf.PubSub.TopicID),
		Images:        imagesService,
		Notifier:      notifier,
		BaseURL:       conf.Server.BaseURL,
		MaxImageBytes: conf.Server.MaxImageBytes,
	})
	return a, nil
}

// Close releases everything in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
