package fairshare

import (
	"context"

	"github.com/matheuscscp/fairshare/internal/rotatesecret"
	_ "github.com/matheuscscp/fairshare/logging"

	"github.com/sirupsen/logrus"
)

var rotate = rotatesecret.Run

// RotateSecret is a Pub/Sub Cloud Function subscribed to the Secret Manager
// rotation topic of the JWT and OpenAI secrets.
func RotateSecret(ctx context.Context, m PubSubMessage) error {
	if m.Attributes.EventType != eventTypeSecretRotate {
		logrus.Infof("event %s skipped on secret %s", m.Attributes.EventType, m.Attributes.SecretID)
		return nil
	}
	return rotate(ctx, m.Attributes.SecretID)
}
