package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, max int64) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "buckets"), max)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openStore(t, 1024)

	obj, err := s.Put("avatars", "Me.PNG", "image/png", 7, []byte("pngdata"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.Key, "7/"))
	assert.True(t, strings.HasSuffix(obj.Key, ".png"))
	assert.Equal(t, int64(7), obj.Size)
	assert.Equal(t, "/api/storage/avatars/"+obj.Key, obj.URL())

	data, meta, err := s.Get("avatars", obj.Key)
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))
	assert.Equal(t, "image/png", meta.ContentType)
	assert.Equal(t, "Me.PNG", meta.Name)

	require.NoError(t, s.Delete("avatars", obj.Key))
	_, _, err = s.Get("avatars", obj.Key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, s.Delete("avatars", obj.Key), ErrObjectNotFound)
}

func TestPutRejects(t *testing.T) {
	s := openStore(t, 4)

	_, err := s.Put("secrets", "a.txt", "text/plain", 1, []byte("x"))
	assert.ErrorIs(t, err, ErrUnknownBucket)
	_, err = s.Put("banners", "a.png", "image/png", 1, nil)
	assert.ErrorIs(t, err, ErrEmptyObject)
	_, err = s.Put("banners", "a.png", "image/png", 1, []byte("too big"))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestListAndUsage(t *testing.T) {
	s := openStore(t, 0)

	_, err := s.Put("product-images", "a.jpg", "image/jpeg", 1, []byte("aaaa"))
	require.NoError(t, err)
	_, err = s.Put("product-images", "b.jpg", "image/jpeg", 2, []byte("bb"))
	require.NoError(t, err)
	_, err = s.Put("post-media", "c.mp4", "video/mp4", 1, []byte("cccccc"))
	require.NoError(t, err)

	all, err := s.List("product-images", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.List("product-images", "1/")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 1, mine[0].OwnerID)

	usage, err := s.Usage()
	require.NoError(t, err)
	assert.Equal(t, int64(6), usage["product-images"])
	assert.Equal(t, int64(6), usage["post-media"])
	assert.Equal(t, int64(0), usage["avatars"])
	assert.Equal(t, int64(12), TotalBytes(usage))
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("meta;"), prefixEnd([]byte("meta:")))
	assert.Equal(t, []byte{0x02}, prefixEnd([]byte{0x01, 0xff}))
	assert.Nil(t, prefixEnd([]byte{0xff}))
}

func TestPutRejectsTypesOutsideBucket(t *testing.T) {
	s := openStore(t, 0)

	_, err := s.Put("avatars", "a.png", "text/html; charset=utf-8", 1, []byte("<script></script>"))
	assert.ErrorIs(t, err, ErrContentType)
	_, err = s.Put("banners", "a.mp4", "video/mp4", 1, []byte("v"))
	assert.ErrorIs(t, err, ErrContentType)

	obj, err := s.Put("message-attachments", "doc.pdf", "Application/PDF", 1, []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", obj.ContentType)
}

func TestAcceptsAndInline(t *testing.T) {
	cases := []struct {
		bucket, contentType string
		accepts, inline     bool
	}{
		{"avatars", "image/png", true, true},
		{"avatars", "image/svg+xml", false, false},
		{"avatars", "text/html; charset=utf-8", false, false},
		{"post-media", "video/webm", true, true},
		{"post-media", "audio/mpeg", false, true},
		{"message-attachments", "audio/wave", true, true},
		{"message-attachments", "application/octet-stream", true, false},
		{"message-attachments", "text/plain; charset=utf-8", false, false},
		{"product-images", "application/pdf", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.bucket+" "+tc.contentType, func(t *testing.T) {
			assert.Equal(t, tc.accepts, Accepts(tc.bucket, tc.contentType))
			assert.Equal(t, tc.inline, Inline(tc.contentType))
		})
	}
}
