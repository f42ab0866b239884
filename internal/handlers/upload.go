package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"social-service/internal/storage"
)

// BlobStore is the bucket store behind uploads.
type BlobStore interface {
	Put(bucket, name, contentType string, ownerID int, data []byte) (storage.Object, error)
	Get(bucket, key string) ([]byte, storage.Object, error)
	Stat(bucket, key string) (storage.Object, error)
	Delete(bucket, key string) error
	List(bucket, prefix string) ([]storage.Object, error)
}

// UploadHandler serves the storage buckets.
type UploadHandler struct {
	store   BlobStore
	maxSize int64
}

func NewUploadHandler(store BlobStore, maxSize int64) *UploadHandler {
	return &UploadHandler{store: store, maxSize: maxSize}
}

// Upload handles POST /api/storage/:bucket with a multipart "file" field.
func (h *UploadHandler) Upload(c *gin.Context) {
	bucket := c.Param("bucket")
	if !storage.ValidBucket(bucket) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown bucket"})
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if h.maxSize > 0 && header.Size > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer file.Close()

	var src io.Reader = file
	if h.maxSize > 0 {
		src = io.LimitReader(file, h.maxSize+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}

	// The declared part type is ignored; only the bytes decide.
	obj, err := h.store.Put(bucket, header.Filename, http.DetectContentType(data), c.GetInt("userID"), data)
	if err != nil {
		h.storeError(c, err, "could not store file")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"object": obj, "url": obj.URL()})
}

// Download handles GET /api/storage/:bucket/*key.
func (h *UploadHandler) Download(c *gin.Context) {
	bucket, key := c.Param("bucket"), objectKey(c)
	data, obj, err := h.store.Get(bucket, key)
	if err != nil {
		h.storeError(c, err, "object not found")
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Header("Content-Length", strconv.FormatInt(obj.Size, 10))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
	contentType := obj.ContentType
	if !storage.Inline(contentType) {
		contentType = "application/octet-stream"
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": obj.Name}))
	}
	c.Data(http.StatusOK, contentType, data)
}

// ListMine handles GET /api/uploads/:bucket, listing the caller's objects.
func (h *UploadHandler) ListMine(c *gin.Context) {
	bucket := c.Param("bucket")
	objects, err := h.store.List(bucket, strconv.Itoa(c.GetInt("userID"))+"/")
	if err != nil {
		h.storeError(c, err, "failed to list objects")
		return
	}
	if objects == nil {
		objects = []storage.Object{}
	}
	c.JSON(http.StatusOK, gin.H{"objects": objects})
}

// Delete handles DELETE /api/storage/:bucket/*key (owner only).
func (h *UploadHandler) Delete(c *gin.Context) {
	bucket, key := c.Param("bucket"), objectKey(c)
	obj, err := h.store.Stat(bucket, key)
	if err != nil {
		h.storeError(c, err, "object not found")
		return
	}
	if obj.OwnerID != c.GetInt("userID") {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner"})
		return
	}
	if err := h.store.Delete(bucket, key); err != nil {
		h.storeError(c, err, "could not delete object")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UploadHandler) storeError(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrUnknownBucket), errors.Is(err, storage.ErrEmptyObject):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrContentType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, storage.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrObjectNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": msg})
}

func objectKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}
