package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-service/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func setupUploadRouter(t *testing.T, userID int) (*gin.Engine, *storage.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := storage.Open(filepath.Join(t.TempDir(), "buckets"), 1<<20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	handler := NewUploadHandler(store, 1<<20)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	r.POST("/api/storage/:bucket", handler.Upload)
	r.GET("/api/storage/:bucket/*key", handler.Download)
	r.DELETE("/api/storage/:bucket/*key", handler.Delete)
	r.GET("/api/uploads/:bucket", handler.ListMine)
	return r, store
}

func uploadFile(r *gin.Engine, bucket, filename, partType string, data []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", partType)
	part, _ := w.CreatePart(h)
	_, _ = part.Write(data)
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/storage/"+bucket, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func uploadedURL(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.URL
}

func TestUploadRejectsHTMLDisguisedAsImage(t *testing.T) {
	r, store := setupUploadRouter(t, 7)

	w := uploadFile(r, "avatars", "avatar.png", "image/png", []byte("<script>alert(document.cookie)</script>"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	objects, err := store.List("avatars", "7/")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestUploadUsesDetectedType(t *testing.T) {
	r, _ := setupUploadRouter(t, 7)

	w := uploadFile(r, "avatars", "avatar.png", "text/html", pngHeader)
	require.Equal(t, http.StatusCreated, w.Code)
	url := uploadedURL(t, w)
	assert.True(t, strings.HasPrefix(url, "/api/storage/avatars/7/"))

	w = serve(r, http.MethodGet, url, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	assert.Equal(t, pngHeader, w.Body.Bytes())
}

func TestDownloadSendsDocumentsAsAttachments(t *testing.T) {
	r, _ := setupUploadRouter(t, 7)

	w := uploadFile(r, "message-attachments", "report.pdf", "application/pdf", []byte("%PDF-1.4 body"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(r, http.MethodGet, uploadedURL(t, w), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, `attachment; filename=report.pdf`, w.Header().Get("Content-Disposition"))
}

func TestUploadRejectsUnknownBucketAndMissingFile(t *testing.T) {
	r, _ := setupUploadRouter(t, 7)

	w := uploadFile(r, "secrets", "a.png", "image/png", pngHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"unknown bucket"}`, w.Body.String())

	w = serve(r, http.MethodPost, "/api/storage/avatars", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteIsOwnerOnly(t *testing.T) {
	r, store := setupUploadRouter(t, 9)
	obj, err := store.Put("avatars", "a.png", "image/png", 7, pngHeader)
	require.NoError(t, err)

	w := serve(r, http.MethodDelete, obj.URL(), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodGet, "/api/uploads/avatars", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"objects":[]}`, w.Body.String())

	w = serve(r, http.MethodDelete, "/api/storage/avatars/9/missing.png", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
