// Package gcs implements storage.ObjectStore on Google Cloud Storage.
//
// GCS has no native multipart-upload API, so multipart sessions are built
// from temporary part objects plus the compose operation: each part is
// written under a session-scoped prefix, Complete composes them in order
// into the final key and deletes the temporaries, Abort deletes whatever
// parts were written. The final object appears atomically on compose, so a
// reader sees either nothing or the fully combined object.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/crawllie/crawllie/internal/storage"
)

// composeBatchLimit is the GCS ceiling on source components per compose call.
const composeBatchLimit = 32

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// Store writes crawl artifacts to a GCS bucket.
type Store struct {
	client *gstorage.Client
	bucket string
	logger *zap.Logger
}

// New creates a GCS-backed store and verifies the bucket is reachable.
// Authentication uses Application Default Credentials.
func New(ctx context.Context, client *gstorage.Client, cfg Config, logger *zap.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		return nil, fmt.Errorf("probe bucket %q: %w", cfg.Bucket, err)
	}
	return &Store{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Put writes a whole object in one call.
func (s *Store) Put(ctx context.Context, key string, opts storage.PutOptions, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.ContentEncoding = opts.ContentEncoding
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			s.logger.Warn("close writer after failed write", zap.String("key", key), zap.Error(closeErr))
		}
		return storage.NewError("put", key, err)
	}
	if err := w.Close(); err != nil {
		return storage.NewError("put", key, err)
	}
	return nil
}

// Get reads a whole object back.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gstorage.ErrObjectNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.NewError("get", key, err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			s.logger.Warn("close reader", zap.String("key", key), zap.Error(closeErr))
		}
	}()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, storage.NewError("get", key, err)
	}
	return data, nil
}

// Exists reports whether an object is visible at key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gstorage.ErrObjectNotExist):
		return false, nil
	default:
		return false, storage.NewError("exists", key, err)
	}
}

// List returns the keys under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gstorage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return keys, nil
		}
		if err != nil {
			return nil, storage.NewError("list", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
}

// BeginUpload opens a multipart session targeting key.
func (s *Store) BeginUpload(_ context.Context, key string, opts storage.PutOptions) (storage.Upload, error) {
	return &upload{
		store:     s,
		key:       key,
		opts:      opts,
		sessionID: uuid.NewString(),
		partNames: make(map[int]string),
	}, nil
}

type upload struct {
	store     *Store
	key       string
	opts      storage.PutOptions
	sessionID string
	partNames map[int]string
	temps     []string
}

func (u *upload) partName(number int) string {
	return fmt.Sprintf("%s.upload/%s/part-%05d", u.key, u.sessionID, number)
}

// UploadPart writes one part as a temporary object and returns its etag as
// the acknowledgment token.
func (u *upload) UploadPart(ctx context.Context, number int, data []byte) (storage.Part, error) {
	name := u.partName(number)
	w := u.store.client.Bucket(u.store.bucket).Object(name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			u.store.logger.Warn("close part writer after failed write", zap.String("part", name), zap.Error(closeErr))
		}
		return storage.Part{}, storage.NewError("upload part", u.key, err)
	}
	if err := w.Close(); err != nil {
		return storage.Part{}, storage.NewError("upload part", u.key, err)
	}
	u.partNames[number] = name
	u.temps = append(u.temps, name)
	return storage.Part{Number: number, ETag: w.Attrs().Etag}, nil
}

// Complete composes the parts, in order, into the final object and removes
// the temporaries. Compose is folded when the session exceeds the per-call
// component limit.
func (u *upload) Complete(ctx context.Context, parts []storage.Part) error {
	if err := storage.ValidateParts(parts); err != nil {
		return storage.NewError("complete", u.key, err)
	}
	if len(parts) == 0 {
		return storage.NewError("complete", u.key, fmt.Errorf("no parts to combine"))
	}

	bkt := u.store.client.Bucket(u.store.bucket)
	sources := make([]*gstorage.ObjectHandle, 0, len(parts))
	for _, p := range parts {
		name, ok := u.partNames[p.Number]
		if !ok {
			return storage.NewError("complete", u.key, fmt.Errorf("unknown part %d", p.Number))
		}
		sources = append(sources, bkt.Object(name))
	}

	for round := 0; len(sources) > composeBatchLimit; round++ {
		var next []*gstorage.ObjectHandle
		for i := 0; i < len(sources); i += composeBatchLimit {
			end := min(i+composeBatchLimit, len(sources))
			name := fmt.Sprintf("%s.upload/%s/merge-%d-%05d", u.key, u.sessionID, round, i)
			dst := bkt.Object(name)
			if _, err := dst.ComposerFrom(sources[i:end]...).Run(ctx); err != nil {
				u.cleanup(ctx)
				return storage.NewError("complete", u.key, err)
			}
			u.temps = append(u.temps, name)
			next = append(next, dst)
		}
		sources = next
	}

	composer := bkt.Object(u.key).ComposerFrom(sources...)
	composer.ContentType = u.opts.ContentType
	composer.ContentEncoding = u.opts.ContentEncoding
	if _, err := composer.Run(ctx); err != nil {
		u.cleanup(ctx)
		return storage.NewError("complete", u.key, err)
	}
	u.cleanup(ctx)
	return nil
}

// Abort discards every temporary object written for this session.
func (u *upload) Abort(ctx context.Context) error {
	u.cleanup(ctx)
	return nil
}

func (u *upload) cleanup(ctx context.Context) {
	bkt := u.store.client.Bucket(u.store.bucket)
	for _, name := range u.temps {
		if err := bkt.Object(name).Delete(ctx); err != nil && !errors.Is(err, gstorage.ErrObjectNotExist) {
			u.store.logger.Warn("delete temp part", zap.String("part", name), zap.Error(err))
		}
	}
	u.temps = nil
	u.partNames = map[int]string{}
}
