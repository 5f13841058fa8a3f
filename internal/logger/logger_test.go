package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.WithFields(Fields{FieldImportID: 7, FieldProvider: "flickr"}).Info("import started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "import started", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "gallery", entry["service"])
	assert.Equal(t, float64(7), entry[FieldImportID])
	assert.Equal(t, "flickr", entry[FieldProvider])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "chatty", Output: &buf})

	log.Debug("hidden")
	log.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	log.WithError(errors.New("boom")).Error("failed")
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf}).WithField(FieldTaskID, "abc")

	ctx := log.WithContext(context.Background())
	FromContext(ctx).Info("from context")

	assert.Contains(t, buf.String(), `"task_id":"abc"`)
	assert.Same(t, Default(), FromContext(context.Background()))
}

func TestSetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(New(Config{Output: &buf}))
	Info("hello %s", "world")
	assert.Contains(t, buf.String(), "hello world")

	SetDefault(nil)
	assert.NotSame(t, original, Default())
}
