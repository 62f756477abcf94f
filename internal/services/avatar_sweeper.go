package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/models"
	"github.com/laibashaikh28/twee-webapp/internal/storage"
)

// AvatarSweeper removes avatar uploads that no profile points at. An upload
// becomes orphaned when the editor is abandoned after the file was stored.
type AvatarSweeper struct {
	docs  storage.DocumentStore
	blobs storage.BlobStore
	log   *zap.Logger
	now   func() time.Time
}

type SweepResult struct {
	Scanned int      `json:"scanned"`
	Kept    int      `json:"kept"`
	Deleted []string `json:"deleted"`
}

func NewAvatarSweeper(docs storage.DocumentStore, blobs storage.BlobStore, log *zap.Logger) *AvatarSweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &AvatarSweeper{docs: docs, blobs: blobs, log: log, now: time.Now}
}

// Sweep deletes unreferenced avatars last written more than grace ago. The
// grace period covers editors that have uploaded but not yet submitted.
// Profiles are matched on the object path inside their avatar URL, not on the
// whole URL, so a change of public host does not orphan live avatars.
func (s *AvatarSweeper) Sweep(ctx context.Context, grace time.Duration, dryRun bool) (*SweepResult, error) {
	objs, err := s.blobs.List(ctx, AvatarPrefix)
	if err != nil {
		return nil, fmt.Errorf("sweep: list avatars: %w", err)
	}
	referenced, err := s.referencedPaths(ctx)
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Deleted: []string{}}
	cutoff := s.now().Add(-grace)
	for _, obj := range objs {
		res.Scanned++

		if obj.Updated.After(cutoff) || referenced[obj.Path] {
			res.Kept++
			continue
		}

		if dryRun {
			s.log.Info("sweep: would delete orphaned avatar", zap.String("path", obj.Path))
			res.Deleted = append(res.Deleted, obj.Path)
			continue
		}
		if err := s.blobs.Delete(ctx, obj.Path); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return res, fmt.Errorf("sweep: delete %s: %w", obj.Path, err)
		}
		s.log.Info("sweep: deleted orphaned avatar", zap.String("path", obj.Path), zap.Time("updated", obj.Updated))
		res.Deleted = append(res.Deleted, obj.Path)
	}
	return res, nil
}

func (s *AvatarSweeper) referencedPaths(ctx context.Context) (map[string]bool, error) {
	var profiles []models.Profile
	if err := s.docs.All(ctx, storage.UsersCollection, &profiles); err != nil {
		return nil, fmt.Errorf("sweep: scan profiles: %w", err)
	}
	paths := make(map[string]bool, len(profiles))
	for _, prof := range profiles {
		if prof.Avatar == "" {
			continue
		}
		if p, ok := s.blobs.ObjectPath(prof.Avatar); ok {
			paths[p] = true
		} else {
			s.log.Debug("sweep: avatar url not served by this store", zap.String("avatar", prof.Avatar))
		}
	}
	return paths, nil
}
