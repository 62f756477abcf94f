package container

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/auth"
	"github.com/laibashaikh28/twee-webapp/internal/config"
	"github.com/laibashaikh28/twee-webapp/internal/firebaseapp"
	"github.com/laibashaikh28/twee-webapp/internal/services"
	"github.com/laibashaikh28/twee-webapp/internal/storage"
)

// UserLookup resolves a uid to the auth provider's user record.
type UserLookup interface {
	LookupUser(ctx context.Context, uid string) (*auth.User, error)
}

// Container holds the backends selected by configuration and the services
// built on them.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Docs  storage.DocumentStore
	Blobs storage.BlobStore

	Verifier  auth.TokenVerifier
	Users     UserLookup
	LocalAuth *auth.LocalAuth

	Profiles *services.ProfileService
	Sweeper  *services.AvatarSweeper

	closers []func(context.Context) error
}

// New connects to the configured document store, blob store and auth
// provider. Close releases them.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	var app *firebase.App
	if cfg.UsesFirebase() {
		var err error
		app, err = firebaseapp.New(ctx, firebaseapp.Config{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
			StorageBucket:   cfg.StorageBucket,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := c.initAuth(ctx, app); err != nil {
		return nil, err
	}
	if err := c.initDocs(ctx, app); err != nil {
		c.Close(ctx)
		return nil, err
	}
	if err := c.initBlobs(ctx, app); err != nil {
		c.Close(ctx)
		return nil, err
	}

	c.Profiles = services.NewProfileService(c.Docs, c.Blobs, cfg.EmptyStateImageURL, log.Named("profiles"))
	c.Sweeper = services.NewAvatarSweeper(c.Docs, c.Blobs, log.Named("sweeper"))
	return c, nil
}

func (c *Container) initAuth(ctx context.Context, app *firebase.App) error {
	switch c.Config.AuthMode {
	case config.AuthLocal:
		accounts, err := auth.LoadAccounts(c.Config.AccountsFile)
		if errors.Is(err, fs.ErrNotExist) {
			c.Logger.Warn("accounts file not found; no local logins available",
				zap.String("path", c.Config.AccountsFile))
			err = nil
		}
		if err != nil {
			return err
		}
		local := auth.NewLocalAuth(c.Config.JWTSecret, c.Config.JWTExpiration, accounts)
		c.LocalAuth = local
		c.Verifier = local
		c.Users = local
	default:
		client, err := app.Auth(ctx)
		if err != nil {
			return fmt.Errorf("firebase auth: %w", err)
		}
		v := auth.NewFirebaseVerifier(client)
		c.Verifier = v
		c.Users = v
	}
	return nil
}

func (c *Container) initDocs(ctx context.Context, app *firebase.App) error {
	switch c.Config.StoreBackend {
	case config.BackendFirebase:
		client, err := app.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("firestore: %w", err)
		}
		store := storage.NewFirestoreStore(client)
		c.Docs = store
		c.closers = append(c.closers, func(context.Context) error { return store.Close() })
	case config.BackendMongo:
		ms, err := storage.NewMongoStore(ctx, c.Config.MongoURI, c.Config.MongoDB)
		if err != nil {
			return err
		}
		c.Docs = ms
		c.closers = append(c.closers, ms.Close)
	default:
		store, err := storage.NewFileStore(c.Config.DataDir)
		if err != nil {
			return err
		}
		c.Docs = store
	}
	c.Logger.Info("document store ready", zap.String("backend", c.Config.StoreBackend))
	return nil
}

func (c *Container) initBlobs(ctx context.Context, app *firebase.App) error {
	switch c.Config.BlobBackend {
	case config.BackendFirebase:
		client, err := app.Storage(ctx)
		if err != nil {
			return fmt.Errorf("firebase storage: %w", err)
		}
		bucket, err := client.Bucket(c.Config.StorageBucket)
		if err != nil {
			return fmt.Errorf("firebase storage bucket: %w", err)
		}
		c.Blobs = storage.NewGCSBlobStore(bucket, c.Config.StorageBucket)
	default:
		ds, err := storage.NewDiskBlobStore(c.Config.UploadDir, c.Config.PublicBaseURL)
		if err != nil {
			return err
		}
		c.Blobs = ds
	}
	c.Logger.Info("blob store ready", zap.String("backend", c.Config.BlobBackend))
	return nil
}

// ServesUploads reports whether avatars live on local disk and must be served
// by this process.
func (c *Container) ServesUploads() bool {
	return c.Config.BlobBackend == config.BackendDisk
}

func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
