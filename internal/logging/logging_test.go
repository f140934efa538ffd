package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("debug", &buf)

	log.WithField("user_id", "abc").Debug("cart cleared")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cart cleared", entry["message"])
	assert.Equal(t, "debug", entry["severity"])
	assert.Equal(t, "abc", entry["user_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("warn", &buf)

	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	log.Info("hidden")
	assert.Zero(t, buf.Len())
}

func TestNew_UnknownLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("chatty", &buf)

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}
