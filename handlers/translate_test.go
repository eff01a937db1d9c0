package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SilentEigen/pdf-hindi-translator/config"
	"github.com/SilentEigen/pdf-hindi-translator/layout"
	"github.com/SilentEigen/pdf-hindi-translator/middleware"
	"github.com/SilentEigen/pdf-hindi-translator/models"
	"github.com/SilentEigen/pdf-hindi-translator/storage"
	"github.com/SilentEigen/pdf-hindi-translator/translator"
)

type testEnv struct {
	handler *Handler
	router  *gin.Engine
	cookie  *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{DataDir: filepath.Join(dir, "data"), MaxUploadMB: 10},
		Translator: config.TranslatorConfig{
			Provider:       "gemini",
			APIKey:         "test-key",
			TargetLanguage: "Hinglish",
			Concurrency:    2,
		},
		Render: config.RenderConfig{Workers: 2},
	}
	h := NewHandler(cfg, storage.NewLocalStorage(filepath.Join(dir, "users")), &layout.FontSet{}, nil, layout.NewNopLogger())
	h.NewTranslateFunc = func(provider translator.ProviderConfig, req models.TranslateRequest, cache *translator.Cache) (layout.TranslateFunc, error) {
		return func(ctx context.Context, text string) string {
			if text == "Hello World" {
				return "Namaste Duniya"
			}
			return text
		}, nil
	}

	r := gin.New()
	r.Use(middleware.SessionMiddleware(middleware.NewSessionManager(time.Hour)))
	h.RegisterRoutes(r)

	env := &testEnv{handler: h, router: r}
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	env.cookie = cookies[0]
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func samplePDF(t *testing.T) []byte {
	t.Helper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: 612, Ht: 792},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(100, 110, "Hello World")

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/translate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) waitForTask(t *testing.T, taskID string) models.TranslateTask {
	t.Helper()
	var task models.TranslateTask
	require.Eventually(t, func() bool {
		w := e.do(t, httptest.NewRequest(http.MethodGet, "/api/status/"+taskID, nil))
		if w.Code != http.StatusOK {
			return false
		}
		task = models.TranslateTask{}
		if err := json.Unmarshal(w.Body.Bytes(), &task); err != nil {
			return false
		}
		return task.Status == models.StatusCompleted || task.Status == models.StatusFailed
	}, 10*time.Second, 20*time.Millisecond)
	return task
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestTranslateFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, uploadRequest(t, "hello.pdf", samplePDF(t), map[string]string{"pages": "1", "ocr": "false"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.TaskID)

	task := env.waitForTask(t, created.TaskID)
	require.Equal(t, models.StatusCompleted, task.Status, task.Error)
	assert.Equal(t, 1.0, task.Progress)
	assert.Equal(t, 1, task.Pages)
	assert.Equal(t, "hello.pdf", task.SourceFile)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/download/"+created.TaskID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "translated_hello.pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/tasks/"+created.TaskID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/status/"+created.TaskID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTranslateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, uploadRequest(t, "book.epub", []byte("x"), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, uploadRequest(t, "a.pdf", samplePDF(t), map[string]string{"pages": "many"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, uploadRequest(t, "a.pdf", samplePDF(t), map[string]string{"llmConfig": "{"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 切换到需要密钥的提供商但没有提供密钥
	w = env.do(t, uploadRequest(t, "a.pdf", samplePDF(t), map[string]string{"llmConfig": `{"provider":"openai"}`}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/translate", nil)
	w = env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranslateCorruptPDFFails(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, uploadRequest(t, "broken.pdf", []byte("not really a pdf"), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	task := env.waitForTask(t, created.TaskID)
	assert.Equal(t, models.StatusFailed, task.Status)
	assert.NotEmpty(t, task.Error)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/download/"+created.TaskID, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTasksAreIsolatedPerSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, uploadRequest(t, "hello.pdf", samplePDF(t), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	env.waitForTask(t, created.TaskID)

	// 没有 cookie 的请求得到新会话，看不到别人的任务
	other := httptest.NewRecorder()
	env.router.ServeHTTP(other, httptest.NewRequest(http.MethodGet, "/api/status/"+created.TaskID, nil))
	assert.Equal(t, http.StatusNotFound, other.Code)
}

func TestProviderConfigOverride(t *testing.T) {
	env := newTestEnv(t)
	h := env.handler

	cfg := h.providerConfig(models.LLMConfig{})
	assert.Equal(t, translator.ProviderGemini, cfg.Type)
	assert.Equal(t, "test-key", cfg.APIKey)

	cfg = h.providerConfig(models.LLMConfig{Provider: "ollama"})
	assert.Equal(t, translator.ProviderOllama, cfg.Type)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, "llama3", cfg.Model)

	cfg = h.providerConfig(models.LLMConfig{Model: "gemini-1.5-pro"})
	assert.Equal(t, "gemini-1.5-pro", cfg.Model)
	assert.Contains(t, cfg.APIURL, "gemini-1.5-pro")
}

func TestDownloadUnknownTask(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/download/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	_, _ = io.Copy(io.Discard, w.Body)
}
