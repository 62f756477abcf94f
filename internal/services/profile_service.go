package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/laibashaikh28/twee-webapp/internal/models"
	"github.com/laibashaikh28/twee-webapp/internal/storage"
)

// AvatarPrefix is the storage folder avatars are uploaded into.
const AvatarPrefix = "avatar/"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidFilename = errors.New("invalid file name")
)

// ProfileService reads and writes profile documents and the user's posts
// through the document and blob capabilities.
type ProfileService struct {
	docs            storage.DocumentStore
	blobs           storage.BlobStore
	emptyStateImage string
	log             *zap.Logger
}

func NewProfileService(docs storage.DocumentStore, blobs storage.BlobStore, emptyStateImage string, log *zap.Logger) *ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{
		docs:            docs,
		blobs:           blobs,
		emptyStateImage: emptyStateImage,
		log:             log,
	}
}

// EmptyStateImage is the placeholder shown when a user has no posts.
func (s *ProfileService) EmptyStateImage() string {
	return s.emptyStateImage
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var prof models.Profile
	if err := s.docs.Get(ctx, storage.UsersCollection, userID, &prof); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return &prof, nil
}

// ListPosts returns the user's posts, newest first.
func (s *ProfileService) ListPosts(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	if err := s.docs.QueryEqual(ctx, storage.PostsCollection, "userId", userID, &posts); err != nil {
		return nil, fmt.Errorf("list posts %s: %w", userID, err)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedOn.After(posts[j].CreatedOn)
	})
	return posts, nil
}

// SaveProfile writes prof as the complete document for userID. Nothing is
// merged with what is stored: the last writer wins.
func (s *ProfileService) SaveProfile(ctx context.Context, userID string, prof models.Profile) error {
	if err := s.docs.Set(ctx, storage.UsersCollection, userID, prof); err != nil {
		return fmt.Errorf("save profile %s: %w", userID, err)
	}
	s.log.Debug("profile saved", zap.String("user_id", userID))
	return nil
}

// ReplaceProfile is SaveProfile for callers that may not change the verified
// flag: the stored value is carried over.
func (s *ProfileService) ReplaceProfile(ctx context.Context, userID string, prof models.Profile) (*models.Profile, error) {
	current, err := s.GetProfile(ctx, userID)
	switch {
	case err == nil:
		prof.Verified = current.Verified
	case errors.Is(err, ErrProfileNotFound):
		prof.Verified = false
	default:
		return nil, err
	}

	if err := s.SaveProfile(ctx, userID, prof); err != nil {
		return nil, err
	}
	return &prof, nil
}

// UploadAvatar stores the file at avatar/<file name> and returns its
// retrieval URL. Uploads with the same name overwrite each other. The URL is
// not written to any profile here.
func (s *ProfileService) UploadAvatar(ctx context.Context, filename string, r io.Reader, contentType string) (*models.AvatarUploadResponse, error) {
	objectPath, err := AvatarPath(filename)
	if err != nil {
		return nil, err
	}

	obj, err := s.blobs.Put(ctx, objectPath, r, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload avatar %s: %w", objectPath, err)
	}
	url, err := s.blobs.DownloadURL(ctx, obj)
	if err != nil {
		return nil, fmt.Errorf("avatar download url %s: %w", objectPath, err)
	}

	s.log.Info("avatar uploaded", zap.String("path", obj.Path), zap.Int64("size", obj.Size))
	return &models.AvatarUploadResponse{Path: obj.Path, URL: url}, nil
}

// AvatarPath maps an uploaded file name to its storage path. Directory parts
// of the name are dropped.
func AvatarPath(filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", ErrInvalidFilename
	}
	return AvatarPrefix + name, nil
}

// ProfileView loads the profile and posts concurrently. A missing profile
// yields an empty profile rather than an error, matching what the page shows
// before a profile is created.
func (s *ProfileService) ProfileView(ctx context.Context, userID string) (*models.ProfileView, error) {
	view := &models.ProfileView{UserID: userID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		prof, err := s.GetProfile(gctx, userID)
		if errors.Is(err, ErrProfileNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		view.Profile = *prof
		return nil
	})
	g.Go(func() error {
		posts, err := s.ListPosts(gctx, userID)
		if err != nil {
			return err
		}
		view.Posts = posts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(view.Posts) == 0 {
		view.Posts = nil
		view.EmptyState = true
		view.EmptyStateImage = s.emptyStateImage
	}
	return view, nil
}
