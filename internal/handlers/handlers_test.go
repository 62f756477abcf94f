package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/laibashaikh28/twee-webapp/internal/auth"
	"github.com/laibashaikh28/twee-webapp/internal/models"
	"github.com/laibashaikh28/twee-webapp/internal/services"
	"github.com/laibashaikh28/twee-webapp/internal/session"
	"github.com/laibashaikh28/twee-webapp/internal/storage"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	docs    *storage.FileStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	docs, err := storage.NewFileStore(filepath.Join(dir, "data"))
	require.NoError(t, err)
	uploadDir := filepath.Join(dir, "uploads")
	blobs, err := storage.NewDiskBlobStore(uploadDir, "http://localhost:8080")
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	local := auth.NewLocalAuth("s3cret", time.Hour, []models.Account{
		{UID: "U1", Email: "ann@example.com", PasswordHash: string(hash), DisplayName: "Ann"},
		{UID: "U2", Email: "bob@example.com", PasswordHash: string(hash), DisplayName: "Bob"},
	})

	profiles := services.NewProfileService(docs, blobs, "https://example.test/empty.jpg", nil)
	sessions := session.NewManager(profiles, time.Minute, nil)
	t.Cleanup(sessions.CloseAll)

	return &testServer{
		t:    t,
		docs: docs,
		handler: NewRouter(RouterConfig{
			Verifier:        local,
			LocalAuth:       local,
			Users:           local,
			Profiles:        profiles,
			Sessions:        sessions,
			UploadDir:       uploadDir,
			MaxUploadSizeMB: 1,
		}),
	}
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/login", "", jsonBody(s.t, models.LoginRequest{Email: email, Password: "pw"}), "application/json")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.AuthResponse
	decodeData(s.t, rec, &resp)
	return resp.Token
}

func (s *testServer) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func avatarForm(t *testing.T, filename, contentType string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestLogin_BadCredentials(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/auth/login", "",
		jsonBody(t, models.LoginRequest{Email: "ann@example.com", Password: "nope"}), "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/login", "", jsonBody(t, map[string]string{}), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "password")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/profile", "/api/users/U1/posts", "/api/sessions/x"} {
		rec := s.do(http.MethodGet, path, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := s.do(http.MethodGet, "/api/profile", "forged", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile_ReplaceAndGet(t *testing.T) {
	s := newTestServer(t)
	token := s.login("ann@example.com")

	rec := s.do(http.MethodGet, "/api/profile", token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/api/profile", token, jsonBody(t, models.Profile{FullName: "Ann"}), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Len(t, env.Errors, 3)
	assert.Contains(t, env.Errors, "username")

	require.NoError(t, s.docs.Set(context.Background(), storage.UsersCollection, "U1",
		models.Profile{Username: "ann1", Verified: true}))

	want := models.Profile{
		FullName: "Ann", Username: "ann1", Email: "ann@example.com",
		Contact: "555", Status: "hi", Verified: false,
	}
	rec = s.do(http.MethodPut, "/api/profile", token, jsonBody(t, want), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/profile", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Profile
	decodeData(t, rec, &got)

	want.Verified = true
	assert.Equal(t, want, got)
}

func TestProfile_UploadAvatar(t *testing.T) {
	s := newTestServer(t)
	token := s.login("ann@example.com")

	body, ct := avatarForm(t, "a.png", "image/png", []byte("first"))
	rec := s.do(http.MethodPost, "/api/profile/avatar", token, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first models.AvatarUploadResponse
	decodeData(t, rec, &first)
	assert.Equal(t, "avatar/a.png", first.Path)
	assert.Equal(t, "http://localhost:8080/uploads/avatar/a.png", first.URL)

	body, ct = avatarForm(t, "a.png", "image/png", []byte("second"))
	rec = s.do(http.MethodPost, "/api/profile/avatar", token, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code)
	var second models.AvatarUploadResponse
	decodeData(t, rec, &second)
	assert.Equal(t, first, second)

	rec = s.do(http.MethodGet, "/uploads/avatar/a.png", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "second", rec.Body.String())

	body, ct = avatarForm(t, "a.txt", "text/plain", []byte("x"))
	rec = s.do(http.MethodPost, "/api/profile/avatar", token, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Profile untouched by uploads.
	rec = s.do(http.MethodGet, "/api/profile", token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicProfileAndPosts(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	token := s.login("bob@example.com")

	require.NoError(t, s.docs.Set(ctx, storage.UsersCollection, "U1", models.Profile{
		FullName: "Ann", Username: "ann1", Email: "ann@example.com", Contact: "555",
	}))
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.docs.Set(ctx, storage.PostsCollection, "p1", models.Post{UserID: "U1", Text: "old", CreatedOn: older}))
	require.NoError(t, s.docs.Set(ctx, storage.PostsCollection, "p2", models.Post{UserID: "U1", Text: "new", CreatedOn: older.Add(time.Hour)}))
	require.NoError(t, s.docs.Set(ctx, storage.PostsCollection, "p3", models.Post{UserID: "U2", Text: "bob's"}))

	rec := s.do(http.MethodGet, "/api/users/U1/profile", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.NotContains(t, string(env.Data), "ann@example.com")
	assert.NotContains(t, string(env.Data), "555")
	var pub models.PublicProfile
	require.NoError(t, json.Unmarshal(env.Data, &pub))
	assert.Equal(t, "ann1", pub.Username)

	rec = s.do(http.MethodGet, "/api/users/U1/posts", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view models.ProfileView
	decodeData(t, rec, &view)
	require.Len(t, view.Posts, 2)
	assert.Equal(t, "new", view.Posts[0].Text)
	assert.False(t, view.EmptyState)

	// Bob has no profile document; his auth record fills in.
	rec = s.do(http.MethodGet, "/api/users/U2/profile", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &pub)
	assert.Equal(t, models.PublicProfile{UserID: "U2", FullName: "Bob"}, pub)

	rec = s.do(http.MethodGet, "/api/users/U9/profile", token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/users/U9/posts", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty models.ProfileView
	decodeData(t, rec, &empty)
	assert.True(t, empty.EmptyState)
	assert.Equal(t, "https://example.test/empty.jpg", empty.EmptyStateImage)
	assert.Empty(t, empty.Posts)
}

func TestSession_EditFlow(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.docs.Set(context.Background(), storage.UsersCollection, "U1", models.Profile{
		FullName: "Ann", Username: "ann1", Contact: "555", Status: "hi",
	}))
	token := s.login("ann@example.com")

	rec := s.do(http.MethodPost, "/api/sessions", token, nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created createSessionResponse
	decodeData(t, rec, &created)
	require.NotEmpty(t, created.ID)
	base := "/api/sessions/" + created.ID

	var view session.View
	require.Eventually(t, func() bool {
		rec := s.do(http.MethodGet, base, token, nil, "")
		if rec.Code != http.StatusOK {
			return false
		}
		var env envelope
		if json.Unmarshal(rec.Body.Bytes(), &env) != nil || json.Unmarshal(env.Data, &view) != nil {
			return false
		}
		return view.Profile.FullName == "Ann" && !view.Loading
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "@ann1", view.Handle)
	assert.True(t, view.EmptyState)

	rec = s.do(http.MethodPost, base+"/editor/submit", token, nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, base+"/editor", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPatch, base+"/editor", token, jsonBody(t, map[string]string{"verified": "true", "bio": "x"}), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, map[string]string{"verified": "field is not editable", "bio": "unknown field"}, env.Errors)

	rec = s.do(http.MethodPatch, base+"/editor", token, jsonBody(t, map[string]string{"status": "bye"}), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &view)
	assert.Equal(t, "bye", view.Editor.Form.Status)
	assert.Equal(t, "hi", view.Profile.Status)

	body, ct := avatarForm(t, "me.png", "image/png", []byte("png"))
	rec = s.do(http.MethodPost, base+"/editor/avatar", token, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/editor/submit", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &view)
	assert.False(t, view.Editor.Open)
	assert.Equal(t, models.Profile{
		FullName: "Ann", Username: "ann1", Contact: "555", Status: "bye",
		Avatar: "http://localhost:8080/uploads/avatar/me.png",
	}, view.Profile)

	// Someone else cannot see the session.
	other := s.login("bob@example.com")
	rec = s.do(http.MethodGet, base, other, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, base+"/signout", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, base, token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &view)
	assert.False(t, view.SignedIn)
	assert.Equal(t, "bye", view.Profile.Status)

	rec = s.do(http.MethodPost, base+"/signin", other, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, base+"/signin", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &view)
	assert.True(t, view.SignedIn)
	assert.Equal(t, "U1", view.UserID)
	require.Eventually(t, func() bool {
		rec := s.do(http.MethodGet, base, token, nil, "")
		var env envelope
		var v session.View
		if json.Unmarshal(rec.Body.Bytes(), &env) != nil || json.Unmarshal(env.Data, &v) != nil {
			return false
		}
		return !v.Loading && v.Profile.Status == "bye"
	}, 2*time.Second, 10*time.Millisecond)

	rec = s.do(http.MethodDelete, base, token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, base, token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
