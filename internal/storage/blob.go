package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var ErrInvalidKey = errors.New("invalid key")

type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, key string) (string, error) // fs returns "file://..." for dev
}

// CleanKey normalizes a slash-separated key and rejects keys that would
// escape the store's root.
func CleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.ContainsRune(key, '\\') {
		return "", ErrInvalidKey
	}
	k := strings.TrimPrefix(path.Clean("/"+key), "/")
	if k == "" {
		return "", ErrInvalidKey
	}
	return k, nil
}
