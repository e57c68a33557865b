// Package publish emits run-completion events so downstream consumers can
// react to freshly stored crawl objects without polling the bucket.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event describes one finished crawl run.
type Event struct {
	RunID     string    `json:"run_id"`
	Site      string    `json:"site"`
	State     string    `json:"state"`
	RawKey    string    `json:"raw_key,omitempty"`
	TextKey   string    `json:"text_key,omitempty"`
	Pages     int       `json:"pages"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events to a topic.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

func encode(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event for run %s: %w", event.RunID, err)
	}
	return data, nil
}
