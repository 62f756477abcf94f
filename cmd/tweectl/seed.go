package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/laibashaikh28/twee-webapp/internal/models"
	"github.com/laibashaikh28/twee-webapp/internal/storage"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write profiles and posts from a YAML file",
	Long: `Write the profiles and posts listed in a YAML file into the configured
document store. Profiles are keyed by uid and replace any stored document.

Example file:

  users:
    U1:
      fullName: Ann
      username: ann1
      contact: "555"
      status: hi
  posts:
    - id: p1
      userId: U1
      text: first post`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "seed.yaml", "seed file")
}

type seedPost struct {
	ID          string `yaml:"id"`
	models.Post `yaml:",inline"`
}

type seedData struct {
	Users map[string]models.Profile `yaml:"users"`
	Posts []seedPost                `yaml:"posts"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := loadSeed(seedFile)
	if err != nil {
		return err
	}

	c, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer c.Close(ctx)

	users, posts, err := applySeed(ctx, c.Docs, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d profiles and %d posts\n", users, posts)
	return nil
}

func loadSeed(path string) (*seedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var data seedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &data, nil
}

func applySeed(ctx context.Context, docs storage.DocumentStore, data *seedData) (int, int, error) {
	for uid, prof := range data.Users {
		if err := docs.Set(ctx, storage.UsersCollection, uid, prof); err != nil {
			return 0, 0, fmt.Errorf("seed profile %s: %w", uid, err)
		}
	}
	for i, p := range data.Posts {
		if p.UserID == "" {
			return len(data.Users), 0, fmt.Errorf("posts[%d]: userId is required", i)
		}
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		if err := docs.Set(ctx, storage.PostsCollection, id, p.Post); err != nil {
			return len(data.Users), i, fmt.Errorf("seed post %s: %w", id, err)
		}
	}
	return len(data.Users), len(data.Posts), nil
}
