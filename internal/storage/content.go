package storage

import (
	"errors"
	"strings"
)

var ErrContentType = errors.New("content type not allowed")

// Content families a bucket may hold.
const (
	familyImage = "image/"
	familyVideo = "video/"
	familyAudio = "audio/"
)

var bucketFamilies = map[string][]string{
	"avatars":             {familyImage},
	"banners":             {familyImage},
	"circle-images":       {familyImage},
	"product-images":      {familyImage},
	"post-media":          {familyImage, familyVideo},
	"message-attachments": {familyImage, familyVideo, familyAudio},
}

// Opaque types only message attachments accept. They are always served as
// downloads.
var attachmentTypes = map[string]bool{
	"application/octet-stream": true,
	"application/pdf":          true,
	"application/zip":          true,
	"application/ogg":          true,
}

// MediaType strips parameters and normalizes case: "Text/HTML; charset=utf-8"
// becomes "text/html".
func MediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// Accepts reports whether bucket may store contentType.
func Accepts(bucket, contentType string) bool {
	mt := MediaType(contentType)
	if mt == "image/svg+xml" {
		return false
	}
	for _, family := range bucketFamilies[bucket] {
		if strings.HasPrefix(mt, family) {
			return true
		}
	}
	return bucket == "message-attachments" && attachmentTypes[mt]
}

// Inline reports whether a browser may render contentType in place.
// Everything else is sent as an attachment.
func Inline(contentType string) bool {
	mt := MediaType(contentType)
	if mt == "image/svg+xml" {
		return false
	}
	return strings.HasPrefix(mt, familyImage) || strings.HasPrefix(mt, familyVideo) || strings.HasPrefix(mt, familyAudio)
}
