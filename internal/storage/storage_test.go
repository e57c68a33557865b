package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObjectKeyLayout(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	key := ObjectKey(CategoryRaw, "cnn", now, "cnn_20260314093000.json.gz")
	require.Equal(t, "raw/cnn/2026/03/14/cnn_20260314093000.json.gz", key)

	key = ObjectKey(CategoryTextProcessed, "bbc", now, "file.json.gz")
	require.Equal(t, "text_processed/bbc/2026/03/14/file.json.gz", key)
}

func TestTimestampedFilename(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 30, 5, 0, time.UTC)
	require.Equal(t, "cnn_20260314093005.json.gz", TimestampedFilename("cnn", now, ""))
	require.Equal(t, "cnn_20260314093005_analysis.json.gz", TimestampedFilename("cnn", now, "analysis"))
}

func TestValidatePartsRequiresContiguousNumbers(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateParts(nil))
	require.NoError(t, ValidateParts([]Part{{Number: 1}, {Number: 2}, {Number: 3}}))
	require.Error(t, ValidateParts([]Part{{Number: 2}, {Number: 1}}))
	require.Error(t, ValidateParts([]Part{{Number: 1}, {Number: 3}}))
}

func TestErrorUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := NewError("put", "raw/x", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "raw/x")
}
