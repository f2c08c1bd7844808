// Package attachments stores the files behind spider documents.
//
// A document row in the collection only holds a URI. When a keeper attaches
// a local file the bytes are copied into a blob store first and the store's
// URI for the new key is what gets recorded. Three drivers exist: fs (the
// default, under the data directory), s3 (any S3-compatible bucket) and
// memory (tests).
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Driver identifies a blob backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ParseDriver validates s. Empty means DriverFilesystem.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DriverFilesystem, nil
	case DriverFilesystem, DriverS3, DriverMemory:
		return d, nil
	default:
		return "", fmt.Errorf("unknown attachment driver %q (want fs, s3 or memory)", s)
	}
}

// PutOptions configures a write.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URI          string            `json:"uri"`
}

// Store is the blob backend behind document attachments.
type Store interface {
	// Put writes a new blob. Writing an existing key fails with ErrExists.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)
	// URI is the stable reference recorded on the document row.
	URI(key string) string
	Driver() Driver
}

var (
	// ErrExists is returned by Put when the key is taken.
	ErrExists = errors.New("attachments: blob already exists")
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("attachments: blob not found")
	// ErrInvalidKey rejects empty, absolute or traversing keys.
	ErrInvalidKey = errors.New("attachments: invalid key")
)

// newID is a package-level var to allow deterministic keys in tests.
var newID = uuid.NewString

// NewKey builds a unique key for a file attached to a spider:
// spiders/<spider-id>/<uuid>-<basename>.
func NewKey(spiderID, filename string) string {
	return path.Join("spiders", safeSegment(spiderID), newID()+"-"+safeSegment(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
}

// KeyFromURI maps a URI produced by s back to its key. It reports false for
// URIs that point elsewhere, such as links the keeper pasted by hand.
func KeyFromURI(s Store, uri string) (string, bool) {
	base := s.URI("")
	if base == "" || !strings.HasPrefix(uri, base) {
		return "", false
	}
	key := strings.TrimPrefix(uri, base)
	if _, err := sanitizeKey(key); err != nil {
		return "", false
	}
	return key, true
}

// safeSegment keeps a key segment to a portable character set.
func safeSegment(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

// sanitizeKey forbids empty, absolute and traversing keys.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: absolute key %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the store", ErrInvalidKey, key)
		}
	}
	return path.Clean(key), nil
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
