package container

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/auth"
	"github.com/laibashaikh28/twee-webapp/internal/config"
	"github.com/laibashaikh28/twee-webapp/internal/models"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		AuthMode:           config.AuthLocal,
		JWTSecret:          "s3cret",
		JWTExpiration:      time.Hour,
		AccountsFile:       filepath.Join(dir, "accounts.yaml"),
		StoreBackend:       config.BackendFile,
		BlobBackend:        config.BackendDisk,
		DataDir:            filepath.Join(dir, "data"),
		UploadDir:          filepath.Join(dir, "uploads"),
		PublicBaseURL:      "http://localhost:8080",
		EmptyStateImageURL: "https://example.test/empty.jpg",
	}
}

func TestNew_LocalBackends(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)

	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	accounts := "accounts:\n  - uid: U1\n    email: ann@example.com\n    password_hash: " + hash + "\n"
	require.NoError(t, os.WriteFile(cfg.AccountsFile, []byte(accounts), 0o600))

	c, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close(ctx)

	assert.True(t, c.ServesUploads())
	require.NotNil(t, c.LocalAuth)

	token, _, err := c.LocalAuth.Login("ann@example.com", "pw")
	require.NoError(t, err)
	u, err := c.Verifier.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "U1", u.UID)

	res, err := c.Profiles.UploadAvatar(ctx, "a.png", strings.NewReader("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/avatar/a.png", res.URL)

	require.NoError(t, c.Profiles.SaveProfile(ctx, "U1", models.Profile{Username: "ann1"}))
	prof, err := c.Profiles.GetProfile(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "ann1", prof.Username)
}

func TestNew_MissingAccountsFileIsNotFatal(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, localConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer c.Close(ctx)

	_, _, err = c.LocalAuth.Login("ann@example.com", "pw")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
