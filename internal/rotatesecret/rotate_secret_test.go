package rotatesecret_test

import (
	"context"
	"testing"

	"github.com/matheuscscp/fairshare/internal/rotatesecret"
	"github.com/matheuscscp/fairshare/services/secrets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotate(t *testing.T) {
	ctx := context.Background()
	svc := secrets.NewMockService()
	const id = "projects/p/secrets/jwt"

	before, err := svc.Read(ctx, id)
	require.NoError(t, err)

	require.NoError(t, rotatesecret.Rotate(ctx, svc, id))

	after, err := svc.Read(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	assert.Error(t, rotatesecret.Rotate(ctx, svc, ""))
}
