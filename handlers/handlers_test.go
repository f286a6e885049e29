package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"postable/handlers"
	"postable/middleware"
	"postable/models"
	"postable/routes"
)

const testSecret = "handlers-test-secret"

var errStore = errors.New("store blew up")

// fakeUserStore is an in-memory UserStore. It hashes with bcrypt.MinCost so
// the signup/authenticate round trip behaves like the real repository.
type fakeUserStore struct {
	users  map[int64]*models.User
	nextID int64
	fail   bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]*models.User{}, nextID: 1}
}

func (s *fakeUserStore) FindByID(_ context.Context, id int64) (*models.User, error) {
	if s.fail {
		return nil, errStore
	}
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.fail {
		return nil, errStore
	}
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) Create(_ context.Context, in models.UserCreate) (*models.User, error) {
	if s.fail {
		return nil, errStore
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:             s.nextID,
		Email:          in.Email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		PasswordDigest: string(hash),
		PictureURL:     in.PictureURL,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.users[u.ID] = u
	s.nextID++
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) Authenticate(ctx context.Context, creds models.UserCredentials) (*models.User, error) {
	u, err := s.FindByEmail(ctx, creds.Email)
	if err != nil || u == nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordDigest), []byte(creds.Password)) != nil {
		return nil, nil
	}
	return u, nil
}

func (s *fakeUserStore) Update(_ context.Context, id int64, in models.UserUpdate) (*models.User, error) {
	if s.fail {
		return nil, errStore
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.PictureURL != nil {
		u.PictureURL = in.PictureURL
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id int64, newPassword string) (int64, error) {
	if s.fail {
		return 0, errStore
	}
	u, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.MinCost)
	if err != nil {
		return 0, err
	}
	u.PasswordDigest = string(hash)
	return 1, nil
}

func (s *fakeUserStore) Delete(_ context.Context, id int64) (int64, error) {
	if s.fail {
		return 0, errStore
	}
	if _, ok := s.users[id]; !ok {
		return 0, nil
	}
	delete(s.users, id)
	return 1, nil
}

// fakePostStore is an in-memory PostStore.
type fakePostStore struct {
	posts  map[int64]*models.Post
	nextID int64
	fail   bool
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: map[int64]*models.Post{}, nextID: 1}
}

func (s *fakePostStore) ListByUser(_ context.Context, userID int64) ([]models.Post, error) {
	if s.fail {
		return nil, errStore
	}
	out := []models.Post{}
	for _, p := range s.posts {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakePostStore) Create(_ context.Context, userID int64, in models.PostCreate) (*models.Post, error) {
	if s.fail {
		return nil, errStore
	}
	p := &models.Post{
		ID:        s.nextID,
		Title:     in.Title,
		Content:   in.Content,
		UserID:    userID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.posts[p.ID] = p
	s.nextID++
	cp := *p
	return &cp, nil
}

func (s *fakePostStore) Update(_ context.Context, id int64, in models.PostUpdate) (*models.Post, error) {
	if s.fail {
		return nil, errStore
	}
	p, ok := s.posts[id]
	if !ok {
		return nil, nil
	}
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	cp := *p
	return &cp, nil
}

func (s *fakePostStore) Delete(_ context.Context, id int64) (int64, error) {
	if s.fail {
		return 0, errStore
	}
	if _, ok := s.posts[id]; !ok {
		return 0, nil
	}
	delete(s.posts, id)
	return 1, nil
}

func (s *fakePostStore) IsOwnedBy(_ context.Context, id, userID int64) (bool, error) {
	if s.fail {
		return false, errStore
	}
	p, ok := s.posts[id]
	return ok && p.UserID == userID, nil
}

// fakeFileStore is an in-memory blob store keyed by object key.
type fakeFileStore struct {
	objects map[string][]byte
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{objects: map[string][]byte{}}
}

func (s *fakeFileStore) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeFileStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fakeFileStore) Delete(_ context.Context, keys []string) error {
	for _, key := range keys {
		delete(s.objects, key)
	}
	return nil
}

func (s *fakeFileStore) URL(key string) string {
	return "https://test-bucket.s3.eu-west-1.amazonaws.com/" + key
}

type env struct {
	router *gin.Engine
	users  *fakeUserStore
	posts  *fakePostStore
	files  *fakeFileStore
}

func newEnv() *env {
	gin.SetMode(gin.TestMode)
	users := newFakeUserStore()
	posts := newFakePostStore()
	files := newFakeFileStore()

	log := zerolog.Nop()
	userHandler := handlers.NewUserHandler(users, files, testSecret, log)
	postHandler := handlers.NewPostHandler(posts, log)

	return &env{
		router: routes.Setup(userHandler, postHandler, testSecret, nil),
		users:  users,
		posts:  posts,
		files:  files,
	}
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signup creates a user through the public route and returns its id and token.
func (e *env) signup(t *testing.T, email string) (int64, string) {
	t.Helper()

	w := e.do(t, "POST", "/users", "", map[string]string{
		"email":     email,
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"password":  "secret-pw",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ID    int64  `json:"id"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.ID)
	require.NotEmpty(t, resp.Token)
	return resp.ID, resp.Token
}

func signTokenFor(t *testing.T, id int64) string {
	t.Helper()
	token, err := middleware.SignToken(id, testSecret)
	require.NoError(t, err)
	return token
}

func multipartImage(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
