package session

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/models"
)

// OpenEditor opens the edit surface with the form filled from the displayed
// profile. Opening an already open editor keeps its form.
func (s *Session) OpenEditor(ctx context.Context) error {
	var err error
	if doErr := s.do(ctx, func() {
		if !s.st.signedIn {
			err = ErrNotSignedIn
			return
		}
		if s.st.editorOpen {
			return
		}
		s.st.editorOpen = true
		s.st.editorGen = s.st.gen
		s.st.form = NewForm(s.st.profile)
	}); doErr != nil {
		return doErr
	}
	return err
}

// CloseEditor discards the form. Avatars already uploaded stay in storage.
func (s *Session) CloseEditor(ctx context.Context) error {
	return s.do(ctx, func() {
		s.st.editorOpen = false
		s.st.form = Form{}
	})
}

// SetField updates one form field.
func (s *Session) SetField(ctx context.Context, field Field, value string) error {
	var err error
	if doErr := s.do(ctx, func() {
		if !s.st.editorOpen {
			err = ErrEditorClosed
			return
		}
		err = s.st.form.Set(field, value)
	}); doErr != nil {
		return doErr
	}
	return err
}

// UploadAvatar stores the file and, when the upload finishes while the
// editor is still open, puts its URL in the form. The upload is not part of
// the profile save: if the editor is abandoned, the file stays in storage.
func (s *Session) UploadAvatar(ctx context.Context, filename string, r io.Reader, contentType string) (string, error) {
	var (
		gen int
		err error
	)
	if doErr := s.do(ctx, func() {
		if !s.st.editorOpen || s.st.editorGen != s.st.gen {
			err = ErrEditorClosed
			return
		}
		gen = s.st.gen
		s.st.uploads++
		s.wg.Add(1)
	}); doErr != nil {
		return "", doErr
	}
	if err != nil {
		return "", err
	}
	defer s.wg.Done()

	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	res, upErr := s.profiles.UploadAvatar(opCtx, filename, r, contentType)

	var applyErr error
	if doErr := s.do(context.Background(), func() {
		s.st.uploads--
		if upErr != nil {
			return
		}
		if !s.st.editorOpen || gen != s.st.gen {
			applyErr = ErrEditorClosed
			return
		}
		s.st.form.Avatar = res.URL
	}); doErr != nil {
		if upErr != nil {
			return "", upErr
		}
		return "", doErr
	}

	if upErr != nil {
		s.log.Warn("avatar upload failed", zap.String("filename", filename), zap.Error(upErr))
		return "", upErr
	}
	if applyErr != nil {
		return "", applyErr
	}
	return res.URL, nil
}

// Submit writes the form as the complete profile document and closes the
// editor. If the write fails the error is returned, the form is reset to the
// displayed profile and the editor stays open.
func (s *Session) Submit(ctx context.Context) (models.Profile, error) {
	var (
		rec models.Profile
		uid string
		gen int
		err error
	)
	if doErr := s.do(ctx, func() {
		switch {
		case !s.st.editorOpen, s.st.editorGen != s.st.gen:
			err = ErrEditorClosed
		case !s.st.signedIn:
			err = ErrNotSignedIn
		case s.st.saving:
			err = ErrSaveInProgress
		default:
			rec = s.st.form.Record()
			uid, gen = s.st.userID, s.st.gen
			s.st.saving = true
			s.wg.Add(1)
		}
	}); doErr != nil {
		return models.Profile{}, doErr
	}
	if err != nil {
		return models.Profile{}, err
	}
	defer s.wg.Done()

	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	saveErr := s.profiles.SaveProfile(opCtx, uid, rec)

	if doErr := s.do(context.Background(), func() {
		s.st.saving = false
		if gen != s.st.gen {
			// Signed in as someone else meanwhile; the write still happened
			// for uid but this page no longer shows that profile.
			return
		}
		if saveErr != nil {
			s.st.form = NewForm(s.st.profile)
			return
		}
		s.st.profile = rec
		s.st.editorOpen = false
		s.st.form = Form{}
	}); doErr != nil {
		if saveErr != nil {
			return models.Profile{}, saveErr
		}
		return models.Profile{}, doErr
	}

	if saveErr != nil {
		s.log.Warn("profile save failed", zap.String("user_id", uid), zap.Error(saveErr))
		return models.Profile{}, saveErr
	}
	s.log.Info("profile saved", zap.String("user_id", uid))
	return rec, nil
}

// IsClosed reports whether err means the session is gone.
func IsClosed(err error) bool {
	return errors.Is(err, ErrSessionClosed)
}
