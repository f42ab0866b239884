// Package storage is the bucket store for uploaded media, kept in a local
// pebble database.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	pebble "github.com/cockroachdb/pebble"
	"github.com/google/uuid"
)

var (
	ErrUnknownBucket  = errors.New("unknown bucket")
	ErrObjectNotFound = errors.New("object not found")
	ErrEmptyObject    = errors.New("empty object")
	ErrTooLarge       = errors.New("object too large")
)

// Buckets the service accepts uploads into.
var Buckets = []string{
	"avatars",
	"banners",
	"circle-images",
	"post-media",
	"message-attachments",
	"product-images",
}

// ValidBucket reports whether name is a known bucket.
func ValidBucket(name string) bool {
	for _, b := range Buckets {
		if b == name {
			return true
		}
	}
	return false
}

// Object is the metadata of a stored file.
type Object struct {
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	OwnerID     int       `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// URL is the download path served by the API.
func (o Object) URL() string {
	return "/api/storage/" + o.Bucket + "/" + o.Key
}

type Store struct {
	db      *pebble.DB
	maxSize int64
}

func Open(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
		return nil, err
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open bucket store: %w", err)
	}
	return &Store{db: db, maxSize: maxSize}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func dataKey(bucket, key string) []byte { return []byte("obj:" + bucket + "/" + key) }
func metaKey(bucket, key string) []byte { return []byte("meta:" + bucket + "/" + key) }

// Put stores data under a fresh key in bucket. The original file name only
// contributes its extension.
func (s *Store) Put(bucket, name, contentType string, ownerID int, data []byte) (Object, error) {
	if !ValidBucket(bucket) {
		return Object{}, fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	if len(data) == 0 {
		return Object{}, ErrEmptyObject
	}
	if !Accepts(bucket, contentType) {
		return Object{}, fmt.Errorf("%w: %s in %s", ErrContentType, MediaType(contentType), bucket)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return Object{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	obj := Object{
		Bucket:      bucket,
		Key:         fmt.Sprintf("%d/%s%s", ownerID, uuid.NewString(), strings.ToLower(path.Ext(name))),
		Name:        path.Base(name),
		ContentType: MediaType(contentType),
		Size:        int64(len(data)),
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
	}
	meta, err := json.Marshal(obj)
	if err != nil {
		return Object{}, err
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(dataKey(bucket, obj.Key), data, nil); err != nil {
		return Object{}, err
	}
	if err := batch.Set(metaKey(bucket, obj.Key), meta, nil); err != nil {
		return Object{}, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return Object{}, fmt.Errorf("commit object: %w", err)
	}
	return obj, nil
}

// Get returns the object's bytes and metadata.
func (s *Store) Get(bucket, key string) ([]byte, Object, error) {
	obj, err := s.Stat(bucket, key)
	if err != nil {
		return nil, Object{}, err
	}
	v, closer, err := s.db.Get(dataKey(bucket, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, Object{}, ErrObjectNotFound
	}
	if err != nil {
		return nil, Object{}, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, obj, nil
}

// Stat returns the metadata only.
func (s *Store) Stat(bucket, key string) (Object, error) {
	if !ValidBucket(bucket) {
		return Object{}, fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	v, closer, err := s.db.Get(metaKey(bucket, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return Object{}, ErrObjectNotFound
	}
	if err != nil {
		return Object{}, err
	}
	defer closer.Close()
	var obj Object
	if err := json.Unmarshal(v, &obj); err != nil {
		return Object{}, fmt.Errorf("decode object meta: %w", err)
	}
	return obj, nil
}

// Delete removes an object. Deleting a missing object is an error.
func (s *Store) Delete(bucket, key string) error {
	if _, err := s.Stat(bucket, key); err != nil {
		return err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(dataKey(bucket, key), nil); err != nil {
		return err
	}
	if err := batch.Delete(metaKey(bucket, key), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// List returns the objects of bucket whose key starts with prefix.
func (s *Store) List(bucket, prefix string) ([]Object, error) {
	if !ValidBucket(bucket) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	lower := metaKey(bucket, prefix)
	var out []Object
	err := s.scan(lower, func(v []byte) error {
		var obj Object
		if err := json.Unmarshal(v, &obj); err != nil {
			return err
		}
		out = append(out, obj)
		return nil
	})
	return out, err
}

// Usage returns stored bytes per bucket.
func (s *Store) Usage() (map[string]int64, error) {
	usage := make(map[string]int64, len(Buckets))
	for _, b := range Buckets {
		usage[b] = 0
	}
	err := s.scan([]byte("meta:"), func(v []byte) error {
		var obj Object
		if err := json.Unmarshal(v, &obj); err != nil {
			return err
		}
		usage[obj.Bucket] += obj.Size
		return nil
	})
	return usage, err
}

// TotalBytes sums a usage map.
func TotalBytes(usage map[string]int64) int64 {
	var total int64
	for _, n := range usage {
		total += n
	}
	return total
}

func (s *Store) scan(prefix []byte, fn func(v []byte) error) error {
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return err
	}
	defer it.Close()
	for ok := it.First(); ok; ok = it.Next() {
		if err := fn(it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
