package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"groceryhelper/internal/analysis"
	"groceryhelper/internal/auth"
	"groceryhelper/internal/newsletter"
	"groceryhelper/internal/password"
	"groceryhelper/internal/session"
	"groceryhelper/internal/users"
)

// fakeDB satisfies database.Service for route tests
type fakeDB struct{}

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row { return nil }
func (f *fakeDB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, nil
}
func (f *fakeDB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (f *fakeDB) Health() map[string]string { return map[string]string{"status": "up"} }
func (f *fakeDB) Close() error              { return nil }

// fakeAnalyzer returns a canned assessment or error
type fakeAnalyzer struct {
	result string
	err    error

	gotRestrictions string
	gotContentType  string
	gotBytes        []byte
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, image analysis.ImageInput, restrictions string) (string, error) {
	a.gotRestrictions = restrictions
	a.gotContentType = image.ContentType
	a.gotBytes = image.Data
	if a.err != nil {
		return "", a.err
	}
	return a.result, nil
}

// fakeStorage records saved photos
type fakeStorage struct {
	savedKeys []string
	err       error
}

func (s *fakeStorage) SaveLabelPhoto(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.savedKeys = append(s.savedKeys, key)
	return "https://minio.local/" + key, nil
}

func (s *fakeStorage) DeleteLabelPhoto(ctx context.Context, key string) error { return nil }
func (s *fakeStorage) EnsureBucketExists(ctx context.Context) error           { return nil }
func (s *fakeStorage) Health(ctx context.Context) error                       { return nil }

// staticSessionManager treats one session ID as authenticated
type staticSessionManager struct {
	pingErr error
}

func (m *staticSessionManager) Create(ctx context.Context, email string, maxAge int) (string, error) {
	return "sid-1", nil
}

func (m *staticSessionManager) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	if sessionID != "sid-1" {
		return nil, session.ErrSessionNotFound
	}
	return &session.Session{ID: sessionID, Email: "a@x.com", CreatedAt: time.Now()}, nil
}

func (m *staticSessionManager) Delete(ctx context.Context, sessionID string) error { return nil }
func (m *staticSessionManager) Validate(ctx context.Context, sessionID string) (bool, error) {
	_, err := m.Get(ctx, sessionID)
	return err == nil, err
}
func (m *staticSessionManager) Ping(ctx context.Context) error { return m.pingErr }

// nullStore satisfies auth.Store for handlers the tests never hit
type nullStore struct{}

func (s *nullStore) Add(ctx context.Context, account *users.Account) (*users.Account, error) {
	return account, nil
}
func (s *nullStore) GetByEmail(ctx context.Context, email string) (*users.Account, error) {
	return nil, users.ErrNotFound
}
func (s *nullStore) Exists(ctx context.Context, email string) (bool, error) { return false, nil }
func (s *nullStore) Delete(ctx context.Context, email string) error         { return nil }

func newTestServer(analyzer analysis.Analyzer, store *fakeStorage) *Server {
	gin.SetMode(gin.TestMode)

	mgr := &staticSessionManager{}
	svc := auth.NewService(&nullStore{}, password.NewBcryptHasher(), newsletter.NewNotifier(&newsletter.Config{}))

	srv := &Server{
		port:       0,
		db:         &fakeDB{},
		analyzer:   analyzer,
		sessionMgr: mgr,
		authH:      auth.NewHandler(svc, mgr),
	}
	if store != nil {
		srv.storage = store
	}
	return srv
}

// analyzeRequest builds an authenticated multipart /analyze request
func analyzeRequest(t *testing.T, restrictions, contentType string, imageData []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if restrictions != "" {
		if err := writer.WriteField("restrictions", restrictions); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if imageData != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="label.png"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		part.Write(imageData)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "sid-1"})
	return req
}

func TestAnalyzeHandler(t *testing.T) {
	analyzer := &fakeAnalyzer{result: "The product is unsafe: contains peanuts."}
	store := &fakeStorage{}
	srv := newTestServer(analyzer, store)
	router := srv.RegisterRoutes()

	req := analyzeRequest(t, "I'm vegetarian and allergic to nuts", "image/png", []byte("label-bytes"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Assessment != "The product is unsafe: contains peanuts." {
		t.Errorf("unexpected assessment %q", resp.Assessment)
	}
	if resp.Disclaimer == "" {
		t.Error("response should carry the disclaimer")
	}
	if resp.PhotoURL == "" {
		t.Error("response should carry the stored photo URL")
	}

	if analyzer.gotRestrictions != "I'm vegetarian and allergic to nuts" {
		t.Errorf("analyzer got restrictions %q", analyzer.gotRestrictions)
	}
	if analyzer.gotContentType != "image/png" || !bytes.Equal(analyzer.gotBytes, []byte("label-bytes")) {
		t.Error("analyzer should receive the uploaded bytes unchanged")
	}
	if len(store.savedKeys) != 1 {
		t.Errorf("expected one stored photo, got %v", store.savedKeys)
	}
}

func TestAnalyzeHandler_RequiresSession(t *testing.T) {
	srv := newTestServer(&fakeAnalyzer{result: "ok"}, nil)
	router := srv.RegisterRoutes()

	req := analyzeRequest(t, "vegan, no soy please", "image/png", []byte("label"))
	req.Header.Del("Cookie")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a session, got %d", w.Code)
	}
}

func TestAnalyzeHandler_VagueRestrictions(t *testing.T) {
	srv := newTestServer(&fakeAnalyzer{result: "ok"}, nil)
	router := srv.RegisterRoutes()

	req := analyzeRequest(t, "no", "image/png", []byte("label"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Code != "RESTRICTIONS_TOO_VAGUE" {
		t.Errorf("unexpected error code %q", resp.Code)
	}
}

func TestAnalyzeHandler_MissingImage(t *testing.T) {
	srv := newTestServer(&fakeAnalyzer{result: "ok"}, nil)
	router := srv.RegisterRoutes()

	req := analyzeRequest(t, "vegan, no soy please", "", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Code != "IMAGE_REQUIRED" {
		t.Errorf("unexpected error code %q", resp.Code)
	}
}

func TestAnalyzeHandler_AnalyzerFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: analysis.ErrAnalyzerUnavailable}
	srv := newTestServer(analyzer, nil)
	router := srv.RegisterRoutes()

	req := analyzeRequest(t, "vegan, no soy please", "image/png", []byte("label"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when the analyzer fails, got %d", w.Code)
	}
}

func TestAnalyzeHandler_StorageFailureDegrades(t *testing.T) {
	analyzer := &fakeAnalyzer{result: "safe"}
	store := &fakeStorage{err: errors.New("bucket gone")}
	srv := newTestServer(analyzer, store)
	router := srv.RegisterRoutes()

	req := analyzeRequest(t, "vegan, no soy please", "image/png", []byte("label"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("photo storage failure must not fail analysis, got %d", w.Code)
	}
	var resp AnalyzeResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.PhotoURL != "" {
		t.Errorf("expected empty photo URL on storage failure, got %q", resp.PhotoURL)
	}
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(&fakeAnalyzer{result: "ok"}, &fakeStorage{})
	router := srv.RegisterRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := resp["database"]; !ok {
		t.Error("health response should include database status")
	}
	if _, ok := resp["storage"]; !ok {
		t.Error("health response should include storage status")
	}
	redis, ok := resp["redis"].(map[string]any)
	if !ok {
		t.Fatal("health response should include redis status")
	}
	if redis["status"] != "up" {
		t.Errorf("expected redis up, got %v", redis["status"])
	}
}

func TestHealthHandler_RedisDown(t *testing.T) {
	srv := newTestServer(&fakeAnalyzer{result: "ok"}, nil)
	srv.sessionMgr = &staticSessionManager{pingErr: errors.New("connection refused")}
	router := srv.RegisterRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	redis, ok := resp["redis"].(map[string]any)
	if !ok {
		t.Fatal("health response should include redis status")
	}
	if redis["status"] != "down" {
		t.Errorf("expected redis down, got %v", redis["status"])
	}
	if redis["error"] == "" {
		t.Error("down redis should carry the error detail")
	}
}
