// Package storage defines the object-store boundary used for crawl artifacts.
// Implementations live in subpackages (gcs, memory).
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// PutOptions carries the content metadata attached to stored objects.
type PutOptions struct {
	ContentType     string
	ContentEncoding string
}

// GzipJSON is the metadata applied to every crawl artifact.
func GzipJSON() PutOptions {
	return PutOptions{
		ContentType:     "application/json",
		ContentEncoding: "gzip",
	}
}

// Part identifies one committed piece of a multipart session. Numbers are
// contiguous and 1-based in commit order; ETag is the acknowledgment token
// the store handed back for the part.
type Part struct {
	Number int
	ETag   string
}

// Upload is a single in-flight multipart session for one logical object.
// Complete must receive every Part returned by UploadPart, in order.
// After Complete or Abort the session must not be reused.
type Upload interface {
	UploadPart(ctx context.Context, number int, data []byte) (Part, error)
	Complete(ctx context.Context, parts []Part) error
	Abort(ctx context.Context) error
}

// ObjectStore abstracts the durable object storage backend.
type ObjectStore interface {
	// Put writes a whole object in a single call.
	Put(ctx context.Context, key string, opts PutOptions, data []byte) error
	// Get reads a whole object back.
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether an object is visible at the key.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns the keys under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// BeginUpload opens a multipart session targeting the key. The object
	// becomes visible only after a successful Complete.
	BeginUpload(ctx context.Context, key string, opts PutOptions) (Upload, error)
}

// Error wraps a failure at the storage boundary. It is not locally
// recoverable; the orchestrator marks the run failed when it sees one.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a storage Error.
func NewError(op, key string, err error) *Error {
	return &Error{Op: op, Key: key, Err: err}
}

// ValidateParts checks that parts are numbered contiguously from 1.
func ValidateParts(parts []Part) error {
	for i, p := range parts {
		if p.Number != i+1 {
			return fmt.Errorf("part numbers not contiguous: position %d holds part %d", i, p.Number)
		}
	}
	return nil
}
