package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/auth"
	"github.com/sh1zzle/activetime-project/internal/healthimport"
	"github.com/sh1zzle/activetime-project/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devToken = "MOCK-TOKEN"

type testEnv struct {
	router  *gin.Engine
	repos   *storage.Repositories
	tokens  *auth.JWTProvider
	scratch string
}

func setupRouter(t *testing.T, importer HealthImporter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	logger := internal.NopLogger()

	repos, err := storage.NewFileRepositories(
		filepath.Join(dir, "users.json"),
		filepath.Join(dir, "sleep_logs.json"),
		filepath.Join(dir, "productivity.json"),
		logger,
	)
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close(context.Background()) })

	scratch := t.TempDir()
	if importer == nil {
		importer = healthimport.New(repos.Sleep, logger, healthimport.WithScratchDir(scratch))
	}
	tokens := auth.NewJWTProvider([]byte("test-secret"), time.Hour, repos.Users)
	provider := auth.Chain{auth.NewLocalAuthProvider(devToken, logger), tokens}

	app := NewApplication(logger, repos, importer, tokens)
	return &testEnv{
		router:  NewRouter(app, provider, RouterOptions{MaxUploadBytes: 1 << 20}),
		repos:   repos,
		tokens:  tokens,
		scratch: scratch,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	return e.do(t, method, path, r, "application/json", token)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func healthZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const sleepXML = `<?xml version="1.0" encoding="UTF-8"?>
<HealthData locale="en_US">
 <Record type="HKCategoryTypeIdentifierSleepAnalysis" sourceName="Apple Watch" value="HKCategoryValueSleepAnalysisAsleepCore" startDate="2024-03-01 23:00:00 +0000" endDate="2024-03-02 02:00:00 +0000"/>
 <Record type="HKCategoryTypeIdentifierSleepAnalysis" sourceName="Apple Watch" value="HKCategoryValueSleepAnalysisAsleepDeep" startDate="2024-03-02 02:10:00 +0000" endDate="2024-03-02 06:30:00 +0000"/>
 <Record type="HKCategoryTypeIdentifierSleepAnalysis" sourceName="Apple Watch" value="HKCategoryValueSleepAnalysisAsleepCore" startDate="2024-03-02 14:00:00 +0000" endDate="2024-03-02 14:45:00 +0000"/>
</HealthData>
`

func multipartBody(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, field, filename string, content []byte, token string) *httptest.ResponseRecorder {
	body, ct := multipartBody(t, field, filename, content)
	return e.do(t, http.MethodPost, "/api/sleep/import-health-data", body, ct, token)
}

func TestHealthz(t *testing.T) {
	env := setupRouter(t, nil)
	w := env.do(t, http.MethodGet, "/healthz", nil, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestImportHealthDataRequiresAuth(t *testing.T) {
	env := setupRouter(t, nil)
	archive := healthZip(t, map[string]string{"apple_health_export/export.xml": sleepXML})
	w := env.upload(t, "healthData", "export.zip", archive, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	logs, _, err := env.repos.Sleep.ListSleepLogs(context.Background(), "u1", storage.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestImportHealthDataIsIdempotent(t *testing.T) {
	env := setupRouter(t, nil)
	archive := healthZip(t, map[string]string{"apple_health_export/export.xml": sleepXML})

	w := env.upload(t, "healthData", "export.zip", archive, devToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"Import successful","count":2}`, w.Body.String())

	w = env.upload(t, "healthData", "export.zip", archive, devToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Import successful","count":0}`, w.Body.String())

	w = env.doJSON(t, http.MethodGet, "/api/sleep", "", devToken)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	latest := data[0].(map[string]any)
	assert.Equal(t, 0.75, latest["duration"])
	assert.Equal(t, "Imported from Apple Health (Apple Watch)", latest["notes"])
	night := data[1].(map[string]any)
	assert.Equal(t, 7.5, night["duration"])
	assert.Equal(t, float64(5), night["quality"])
}

func TestImportHealthDataRejections(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		content  func(t *testing.T) []byte
		want     string
	}{
		{"no file", "", "", nil, "No file uploaded"},
		{"wrong field", "file", "export.zip", func(t *testing.T) []byte { return []byte("x") }, "No file uploaded"},
		{"not a zip name", "healthData", "data.txt", func(t *testing.T) []byte { return []byte("hello") }, "Please upload a .zip file from Apple Health"},
		{"not a zip body", "healthData", "export.zip", func(t *testing.T) []byte { return []byte("hello") }, msgInvalidExport},
		{"missing export.xml", "healthData", "export.zip", func(t *testing.T) []byte {
			return healthZip(t, map[string]string{"readme.txt": "hi"})
		}, msgInvalidExport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupRouter(t, nil)
			var content []byte
			if tt.content != nil {
				content = tt.content(t)
			}
			w := env.upload(t, tt.field, tt.filename, content, devToken)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.want), w.Body.String())

			_, total, err := env.repos.Sleep.ListSleepLogs(context.Background(), "u1", storage.ListOptions{})
			require.NoError(t, err)
			assert.Zero(t, total)
			entries, err := filepath.Glob(filepath.Join(env.scratch, "*"))
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

type failingImporter struct{ err error }

func (f failingImporter) Import(ctx context.Context, userID, filename string, body io.Reader) (*healthimport.Result, error) {
	return &healthimport.Result{Imported: 1}, f.err
}

func TestImportHealthDataPersistenceFailure(t *testing.T) {
	env := setupRouter(t, failingImporter{err: fmt.Errorf("%w: save: boom", healthimport.ErrPersistence)})
	w := env.upload(t, "healthData", "export.zip", []byte("PK"), devToken)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to import health data"}`, w.Body.String())
}

func TestImportHealthDataTooLarge(t *testing.T) {
	env := setupRouter(t, nil)
	w := env.upload(t, "healthData", "export.zip", bytes.Repeat([]byte("x"), 2<<20), devToken)
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)
}

func TestSleepEndpoints(t *testing.T) {
	env := setupRouter(t, nil)
	start := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s := start.Add(time.Duration(i) * 24 * time.Hour)
		body := fmt.Sprintf(`{"start_time":%q,"end_time":%q,"quality":4,"notes":"night %d"}`,
			s.Format(time.RFC3339), s.Add(8*time.Hour).Format(time.RFC3339), i)
		w := env.doJSON(t, http.MethodPost, "/api/sleep", body, devToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := env.doJSON(t, http.MethodPost, "/api/sleep",
		fmt.Sprintf(`{"start_time":%q,"end_time":%q,"quality":9}`, start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339)), devToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/sleep", `{"end_time":"2024-03-01T07:00:00Z","quality":3}`, devToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodGet, "/api/sleep?page=2&limit=2", "", devToken)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, map[string]any{"total": 3.0, "page": 2.0, "limit": 2.0, "pages": 2.0}, body["pagination"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "night 0", data[0].(map[string]any)["notes"])
}

func TestProductivityEndpoints(t *testing.T) {
	env := setupRouter(t, nil)
	entry := `{"date":"2024-03-01T10:00:00Z","productivity_rating":4,"tasks_completed":3,"focus_quality":3,"energy_level":5,"work_hours":6}`

	w := env.doJSON(t, http.MethodPost, "/api/productivity", entry, devToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)["data"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, 20.0, created["efficiency_score"])
	assert.Equal(t, 4.0, created["performance_score"])

	w = env.doJSON(t, http.MethodPost, "/api/productivity", entry, devToken)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Productivity entry for this date already exists", decode(t, w)["error"])

	w = env.doJSON(t, http.MethodPost, "/api/productivity", `{"date":"2024-03-02T10:00:00Z","productivity_rating":7,"focus_quality":3,"energy_level":3}`, devToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodGet, "/api/productivity?startDate=2024-03-01&endDate=2024-03-01", "", devToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"].([]any), 1)

	w = env.doJSON(t, http.MethodGet, "/api/productivity?startDate=2024-03-02", "", devToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["data"])

	w = env.doJSON(t, http.MethodGet, "/api/productivity?startDate=yesterday", "", devToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	update := fmt.Sprintf(`{"id":%q,"date":"2024-03-01T00:00:00Z","productivity_rating":5,"focus_quality":5,"energy_level":5,"work_hours":5,"notes":"great"}`, id)
	w = env.doJSON(t, http.MethodPut, "/api/productivity", update, devToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "great", decode(t, w)["data"].(map[string]any)["notes"])

	w = env.doJSON(t, http.MethodPut, "/api/productivity", `{"id":"missing","date":"2024-03-01T00:00:00Z","productivity_rating":5,"focus_quality":5,"energy_level":5}`, devToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.doJSON(t, http.MethodDelete, "/api/productivity", "", devToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodDelete, "/api/productivity?id="+id, "", devToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Productivity entry deleted successfully"}`, w.Body.String())

	w = env.doJSON(t, http.MethodDelete, "/api/productivity?id="+id, "", devToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignupAndLogin(t *testing.T) {
	env := setupRouter(t, nil)
	signup := `{"name":"Ada","email":"ada@example.com","password":"correct horse"}`

	w := env.doJSON(t, http.MethodPost, "/api/auth/signup", signup, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"User created successfully"}`, w.Body.String())

	w = env.doJSON(t, http.MethodPost, "/api/auth/signup", signup, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decode(t, w)["error"])

	w = env.doJSON(t, http.MethodPost, "/api/auth/signup", `{"email":"bob@example.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"correct horse"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	token := body["token"].(string)
	user := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	w = env.doJSON(t, http.MethodGet, "/api/sleep", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, decode(t, w)["pagination"].(map[string]any)["total"])
}
