package secrets_test

import (
	"context"
	"encoding/base64"
	"regexp"
	"testing"

	"github.com/matheuscscp/fairshare/services/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	s, err := secrets.Generate()
	require.NoError(t, err)
	b, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	assert.Len(t, b, 32)

	other, err := secrets.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}

func TestGenerateSlug(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-km-np-z2-9]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		slug, err := secrets.GenerateSlug()
		require.NoError(t, err)
		assert.Regexp(t, pattern, slug)
		seen[slug] = true
	}
	assert.Len(t, seen, 100)
}

func TestMockService(t *testing.T) {
	ctx := context.Background()
	svc := secrets.NewMockService()
	defer svc.Close()

	first, err := svc.Read(ctx, "projects/p/secrets/jwt")
	require.NoError(t, err)
	again, err := svc.Read(ctx, "projects/p/secrets/jwt")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	key, err := svc.ReadBinary(ctx, "projects/p/secrets/jwt")
	require.NoError(t, err)
	assert.Len(t, key, 32)

	require.NoError(t, svc.Rotate(ctx, "projects/p/secrets/jwt"))
	rotated, err := svc.Read(ctx, "projects/p/secrets/jwt")
	require.NoError(t, err)
	assert.NotEqual(t, first, rotated)
}
