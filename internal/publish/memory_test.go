package publish

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryPublisherRecordsEvents(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	event := Event{
		RunID:     "run-1",
		Site:      "example",
		State:     "completed",
		RawKey:    "raw/example/2026/03/14/example.json.gz",
		Pages:     7,
		Timestamp: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, m.Publish(context.Background(), event))
	require.NoError(t, m.Publish(context.Background(), Event{RunID: "run-2"}))

	events := m.Events()
	require.Len(t, events, 2)
	require.Equal(t, event, events[0])
	require.NoError(t, m.Close())
}
