package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legaldraft/internal/config"
	"legaldraft/internal/drafting"
	"legaldraft/internal/embedding/tfidf"
	"legaldraft/internal/extract/heuristic"
	"legaldraft/internal/index"
	"legaldraft/internal/logger"
	"legaldraft/internal/service"
	sessmem "legaldraft/internal/session/memory"
	storemem "legaldraft/internal/store/memory"
	vecmem "legaldraft/internal/vectorstore/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

const leaseDoc = "Residential Lease\n\nThis lease is between {{landlord}} and {{tenant}} for {{rent}} per month."

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("down") }

func newTestRouter(t *testing.T, rl config.RateLimitConfig) (*gin.Engine, *index.Index) {
	t.Helper()
	st := storemem.NewStore()
	ix := index.New(tfidf.NewEmbedder(), vecmem.NewStorage())
	c := drafting.NewController(st, ix, drafting.Options{})
	ing := service.NewIngestor(st, heuristic.New(2), c, ix, nil, service.IngestOptions{})
	d := service.NewDrafter(c, sessmem.NewStore(time.Hour))
	h := NewHandler(ing, service.NewCatalog(st), d, Health{Store: st, Index: ix}, 1)
	srv := config.ServerConfig{AllowOrigins: []string{"http://localhost:3000"}}
	return NewRouter(h, srv, rl), ix
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("jurisdiction", "IN"))
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func upload(t *testing.T, r *gin.Engine) int64 {
	t.Helper()
	w := serve(r, uploadRequest(t, "lease.txt", leaseDoc))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["indexed"])
	assert.Equal(t, []any{}, body["warnings"])
	return int64(body["template_id"].(float64))
}

func TestUploadAndDraftRoundTrip(t *testing.T) {
	r, ix := newTestRouter(t, config.RateLimitConfig{})
	id := upload(t, r)
	assert.True(t, ix.Contains(id))

	w := serve(r, jsonRequest(http.MethodPost, "/draft", `{"query":"residential lease","context":{"landlord":"Acme Ltd"}}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "in_progress", body["status"])
	assert.Equal(t, []any{"tenant", "rent"}, body["missing"])
	assert.Len(t, body["questions"], 2)
	assert.Equal(t, float64(id), body["template_id"])
	sid, _ := body["session_id"].(string)
	require.NotEmpty(t, sid)

	w = serve(r, jsonRequest(http.MethodPost, "/draft", `{"session_id":"`+sid+`","context":{"tenant":"Bob","rent":1500}}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "complete", body["status"])
	assert.Equal(t, "Draft generated successfully.", body["message"])
	assert.Contains(t, body["draft"], "between Acme Ltd and Bob for 1500 per month.")
	assert.NotContains(t, body, "session_id")
}

func TestUpload_UnsupportedType(t *testing.T) {
	r, _ := newTestRouter(t, config.RateLimitConfig{})
	w := serve(r, uploadRequest(t, "lease.rtf", leaseDoc))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", decode(t, w)["code"])
}

func TestUpload_MissingFile(t *testing.T) {
	r, _ := newTestRouter(t, config.RateLimitConfig{})
	w := serve(r, httptest.NewRequest(http.MethodPost, "/upload", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])
}

func TestUpload_TooLarge(t *testing.T) {
	r, _ := newTestRouter(t, config.RateLimitConfig{})
	w := serve(r, uploadRequest(t, "big.txt", strings.Repeat("a", 2<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestDraft_Errors(t *testing.T) {
	r, _ := newTestRouter(t, config.RateLimitConfig{})

	w := serve(r, jsonRequest(http.MethodPost, "/draft", `{"query":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])

	w = serve(r, jsonRequest(http.MethodPost, "/draft", `{"query":""}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// empty index
	w = serve(r, jsonRequest(http.MethodPost, "/draft", `{"query":"lease"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TEMPLATE_NOT_FOUND", decode(t, w)["code"])
}

func TestTemplatesEndpoints(t *testing.T) {
	r, ix := newTestRouter(t, config.RateLimitConfig{})
	id := upload(t, r)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/templates?q=lease", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = serve(r, httptest.NewRequest(http.MethodGet, "/templates?q=employment", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = serve(r, httptest.NewRequest(http.MethodGet, "/templates/"+itoa(id), nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Residential Lease", body["title"])
	assert.Equal(t, "txt", body["doctype"])
	assert.Equal(t, "IN", body["jurisdiction"])

	w = serve(r, httptest.NewRequest(http.MethodGet, "/templates/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodDelete, "/templates/"+itoa(id), nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, ix.Contains(id))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/templates/"+itoa(id), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodDelete, "/templates/"+itoa(id), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t, config.RateLimitConfig{})
	upload(t, r)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["store"])
	assert.Equal(t, float64(1), checks["index_entries"])
}

func TestHealthz_StoreDown(t *testing.T) {
	h := NewHandler(nil, nil, nil, Health{Store: downPinger{}}, 0)
	r := NewRouter(h, config.ServerConfig{}, config.RateLimitConfig{})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}

func TestRateLimit(t *testing.T) {
	r, _ := newTestRouter(t, config.RateLimitConfig{RPS: 0.001, Burst: 1})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, w)["code"])
}

func TestRequestIDAndCORS(t *testing.T) {
	r, _ := newTestRouter(t, config.RateLimitConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(r, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
