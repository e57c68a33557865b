// Package stream implements the buffered, chunked persistence channel that
// turns a sequence of records into one durably stored object.
//
// Records are framed as newline-delimited JSON and gzip-compressed per part.
// Gzip members concatenate, so an object committed part-by-part decompresses
// to exactly the bytes a single whole-object write would have produced.
// Only the current part's buffer is ever held in memory.
package stream

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/crawllie/crawllie/internal/metrics"
	"github.com/crawllie/crawllie/internal/storage"
)

// DefaultPartThreshold is the buffered-size trigger for committing a part.
const DefaultPartThreshold = 5 * 1024 * 1024

// Channel accumulates records and commits them to the object store as one
// logical object. Not safe for concurrent use; each crawl run owns its own
// channels.
type Channel struct {
	store     storage.ObjectStore
	key       string
	opts      storage.PutOptions
	threshold int
	logger    *zap.Logger

	buf      bytes.Buffer
	buffered int
	total    int
	upload   storage.Upload
	parts    []storage.Part
	closed   bool
	failed   bool
}

// New opens a channel targeting key. A threshold <= 0 selects the default.
func New(store storage.ObjectStore, key string, threshold int, logger *zap.Logger) *Channel {
	if threshold <= 0 {
		threshold = DefaultPartThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		store:     store,
		key:       key,
		opts:      storage.GzipJSON(),
		threshold: threshold,
		logger:    logger,
	}
}

// Key returns the object key this channel commits to.
func (c *Channel) Key() string {
	return c.key
}

// Push appends one record. Crossing the part threshold commits the buffer as
// the next sequential part and clears it; a part failure aborts the session
// and poisons the channel.
func (c *Channel) Push(ctx context.Context, record any) error {
	if c.closed {
		return fmt.Errorf("channel %s is closed", c.key)
	}
	if c.failed {
		return fmt.Errorf("channel %s already failed", c.key)
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record for %s: %w", c.key, err)
	}
	c.buf.Write(line)
	c.buf.WriteByte('\n')
	c.buffered++
	c.total++

	// The uncompressed serialized size stands in for the part size; the
	// threshold is a trigger point, not an exact part size.
	if c.buf.Len() >= c.threshold {
		if err := c.flushPart(ctx); err != nil {
			c.fail(ctx)
			return err
		}
	}
	return nil
}

// Finish commits the object. Remaining buffered records become a final,
// possibly undersized part; a session that never crossed the threshold is
// written in a single call. With no records pushed, Finish is a no-op and
// returns an empty key. Any storage failure aborts the session so no
// partial object remains, and the error is returned.
func (c *Channel) Finish(ctx context.Context) (string, error) {
	if c.closed {
		return "", fmt.Errorf("channel %s is closed", c.key)
	}
	if c.failed {
		return "", fmt.Errorf("channel %s already failed", c.key)
	}
	c.closed = true

	if c.total == 0 {
		c.logger.Debug("no records pushed, skipping object", zap.String("key", c.key))
		return "", nil
	}

	if c.upload == nil {
		data, err := compress(c.buf.Bytes())
		if err != nil {
			return "", fmt.Errorf("compress %s: %w", c.key, err)
		}
		if err := c.store.Put(ctx, c.key, c.opts, data); err != nil {
			return "", err
		}
		metrics.ObserveUpload(c.key, len(data))
		c.buf.Reset()
		return c.key, nil
	}

	if c.buf.Len() > 0 {
		if err := c.flushPart(ctx); err != nil {
			c.fail(ctx)
			return "", err
		}
	}
	if err := c.upload.Complete(ctx, c.parts); err != nil {
		c.fail(ctx)
		return "", err
	}
	c.logger.Info("multipart object committed",
		zap.String("key", c.key),
		zap.Int("parts", len(c.parts)),
		zap.Int("records", c.total),
	)
	return c.key, nil
}

// Abort discards the channel without committing. Any in-flight upload
// session is torn down so no partial object remains. Safe to call on a
// channel that already finished or failed.
func (c *Channel) Abort(ctx context.Context) {
	if c.closed && c.upload == nil {
		return
	}
	c.closed = true
	c.fail(ctx)
	c.buf.Reset()
}

// Records reports how many records have been pushed.
func (c *Channel) Records() int {
	return c.total
}

func (c *Channel) flushPart(ctx context.Context) error {
	if c.upload == nil {
		up, err := c.store.BeginUpload(ctx, c.key, c.opts)
		if err != nil {
			return err
		}
		c.upload = up
	}
	data, err := compress(c.buf.Bytes())
	if err != nil {
		return fmt.Errorf("compress part for %s: %w", c.key, err)
	}
	number := len(c.parts) + 1
	part, err := c.upload.UploadPart(ctx, number, data)
	if err != nil {
		return err
	}
	c.logger.Debug("part uploaded",
		zap.String("key", c.key),
		zap.Int("part", number),
		zap.Int("bytes", len(data)),
		zap.Int("records", c.buffered),
	)
	metrics.ObserveUploadPart(c.key, len(data))
	c.parts = append(c.parts, part)
	c.buf.Reset()
	c.buffered = 0
	return nil
}

func (c *Channel) fail(ctx context.Context) {
	c.failed = true
	if c.upload == nil {
		return
	}
	if err := c.upload.Abort(ctx); err != nil {
		c.logger.Warn("abort upload session", zap.String("key", c.key), zap.Error(err))
	}
	c.upload = nil
	c.parts = nil
}

func compress(data []byte) ([]byte, error) {
	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
