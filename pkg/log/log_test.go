package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	runID, level, message string
	fields                map[string]interface{}
}

func (r *recordingSink) Publish(runID, level, message string, fields map[string]interface{}) {
	r.runID, r.level, r.message, r.fields = runID, level, message, fields
}

func TestEventForwardsToInstalledSink(t *testing.T) {
	sink := &recordingSink{}
	SetEventSink(sink)
	defer SetEventSink(nil)

	Event("run-1", "warn", "something happened", map[string]interface{}{"step": "parse_merge"})

	assert.Equal(t, "run-1", sink.runID)
	assert.Equal(t, "warn", sink.level)
	assert.Equal(t, "something happened", sink.message)
	assert.Equal(t, "parse_merge", sink.fields["step"])
}

func TestEventWithoutSinkDoesNotPanic(t *testing.T) {
	SetEventSink(nil)
	assert.NotPanics(t, func() {
		Event("run-2", "info", "no sink installed", nil)
	})
}

func TestEventJSONFallsBackOnUnmarshalableValue(t *testing.T) {
	fields := map[string]interface{}{"fn": func() {}}
	out := EventJSON(fields)
	assert.Contains(t, out, "fn")
}
