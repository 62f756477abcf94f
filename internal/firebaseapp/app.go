package firebaseapp

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

type Config struct {
	ProjectID       string
	CredentialsJSON string
	StorageBucket   string
}

// New initializes the Firebase app shared by Auth, Firestore and Storage.
// Without explicit credentials it falls back to Application Default Credentials,
// which is what Cloud Run provides.
func New(ctx context.Context, cfg Config) (*firebase.App, error) {
	fbCfg := &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: init app: %w", err)
	}
	return app, nil
}
