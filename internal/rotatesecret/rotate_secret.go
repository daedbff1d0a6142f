package rotatesecret

import (
	"context"
	"fmt"

	"github.com/matheuscscp/fairshare/services/secrets"

	"github.com/sirupsen/logrus"
)

// Run rotates the given secret, e.g. the JWT signing key of the API.
func Run(ctx context.Context, secretID string) error {
	secretsService, err := secrets.NewService(ctx)
	if err != nil {
		return fmt.Errorf("error creating secrets service: %w", err)
	}
	defer secretsService.Close()
	return Rotate(ctx, secretsService, secretID)
}

// Rotate adds a new version of the secret through svc.
func Rotate(ctx context.Context, svc secrets.Service, secretID string) error {
	if secretID == "" {
		return fmt.Errorf("secret id is required")
	}
	if err := svc.Rotate(ctx, secretID); err != nil {
		return fmt.Errorf("error rotating secret '%s': %w", secretID, err)
	}
	logrus.WithField("secret", secretID).Info("secret rotated")
	return nil
}
