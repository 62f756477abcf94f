package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/laibashaikh28/twee-webapp/internal/models"
	"github.com/laibashaikh28/twee-webapp/internal/storage"
)

const seedYAML = `users:
  U1:
    fullName: Ann
    username: ann1
    contact: "555"
    status: hi
posts:
  - id: p1
    userId: U1
    text: first post
    createdOn: 2024-05-01T10:00:00Z
  - userId: U1
    text: second post
`

func TestSeed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	data, err := loadSeed(path)
	require.NoError(t, err)

	docs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	users, posts, err := applySeed(ctx, docs, data)
	require.NoError(t, err)
	assert.Equal(t, 1, users)
	assert.Equal(t, 2, posts)

	var prof models.Profile
	require.NoError(t, docs.Get(ctx, storage.UsersCollection, "U1", &prof))
	assert.Equal(t, models.Profile{FullName: "Ann", Username: "ann1", Contact: "555", Status: "hi"}, prof)

	var p1 models.Post
	require.NoError(t, docs.Get(ctx, storage.PostsCollection, "p1", &p1))
	assert.Equal(t, "first post", p1.Text)
	assert.True(t, p1.CreatedOn.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))

	var all []models.Post
	require.NoError(t, docs.QueryEqual(ctx, storage.PostsCollection, "userId", "U1", &all))
	assert.Len(t, all, 2)
}

func TestSeed_PostWithoutOwner(t *testing.T) {
	docs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = applySeed(context.Background(), docs, &seedData{Posts: []seedPost{{ID: "p1"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "userId is required")
}

func TestHashPassword(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, runHashPassword(cmd, []string{"pw"}))
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))

	out.Reset()
	cmd.SetIn(strings.NewReader("from-stdin\n"))
	require.NoError(t, runHashPassword(cmd, nil))
	hash = strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("from-stdin")))

	cmd.SetIn(strings.NewReader("\n"))
	assert.Error(t, runHashPassword(cmd, nil))
}
