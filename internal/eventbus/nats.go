// Package eventbus forwards per-run diagnostic log events onto a NATS
// subject, for whatever external dashboard wants to tail a run live.
// Grounded on the teacher's internal/api singleton-client-plus-channel
// shape (internal/api/nats.go), adapted from its external sink-manager
// library to a direct github.com/nats-io/nats.go connection, since that
// is the dependency actually carried in go.mod.
package eventbus

import (
	"encoding/json"
	"sync"

	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/nats-io/nats.go"
)

// Subject is the fixed NATS subject every run's log events publish to.
const Subject = "catalog-worker.run-events"

type event struct {
	RunID   string                 `json:"runId"`
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Client implements pkg/log.EventSink over a NATS connection. Publish
// failures are logged and dropped: a missing NATS broker must never
// fail a pipeline run, since the event stream is diagnostic only.
type Client struct {
	nc   *nats.Conn
	mu   sync.Mutex
	once sync.Once
}

// Connect dials addr and registers the resulting client as the
// package-level log event sink. Call Close on shutdown.
func Connect(addr string) (*Client, error) {
	nc, err := nats.Connect(addr)
	if err != nil {
		return nil, err
	}
	c := &Client{nc: nc}
	log.SetEventSink(c)
	return c, nil
}

// Publish implements pkg/log.EventSink.
func (c *Client) Publish(runID, level, message string, fields map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(event{RunID: runID, Level: level, Message: message, Fields: fields})
	if err != nil {
		log.Warnf("eventbus: marshal event: %s", err.Error())
		return
	}
	if err := c.nc.Publish(Subject, payload); err != nil {
		log.Warnf("eventbus: publish: %s", err.Error())
	}
}

// Close flushes and closes the underlying connection.
func (c *Client) Close() {
	c.once.Do(func() {
		if c.nc != nil {
			c.nc.Flush()
			c.nc.Close()
		}
	})
}
