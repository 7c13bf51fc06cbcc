package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "intake-service", "production").
		WithComponent("extractor").
		WithSubmissionID("sub-1").
		WithRequestID("req-1")

	log.Info().Msg("processed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "intake-service", line["service"])
	assert.Equal(t, "extractor", line["component"])
	assert.Equal(t, "sub-1", line["submission_id"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "processed", line["message"])
}

func TestLogger_ProductionSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "intake-service", "production")

	log.Debug().Msg("noisy")
	assert.Empty(t, buf.String())
}
