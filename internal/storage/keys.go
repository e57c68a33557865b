package storage

import (
	"fmt"
	"path"
	"time"
)

// Category partitions the bucket namespace by processing stage.
type Category string

// Object categories. These are the only valid key roots.
const (
	CategoryRaw           Category = "raw"
	CategoryProcessed     Category = "processed"
	CategoryTextProcessed Category = "text_processed"
)

// ObjectKey builds the canonical key for a crawl artifact:
// <category>/<source>/<YYYY>/<MM>/<DD>/<filename>.
func ObjectKey(category Category, source string, now time.Time, filename string) string {
	return path.Join(
		string(category),
		source,
		now.Format("2006/01/02"),
		filename,
	)
}

// TimestampedFilename builds the default artifact filename for a source.
// The suffix distinguishes parallel streams from the same crawl run.
func TimestampedFilename(source string, now time.Time, suffix string) string {
	stamp := now.Format("20060102150405")
	if suffix == "" {
		return fmt.Sprintf("%s_%s.json.gz", source, stamp)
	}
	return fmt.Sprintf("%s_%s_%s.json.gz", source, stamp, suffix)
}
