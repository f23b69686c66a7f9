package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormatAndLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "")
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Format: "json", Output: &buf})

	require.Equal(t, logrus.DebugLevel, log.GetLevel())
	log.WithField("agent", "red-1").Debug("decided")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "red-1", line["agent"])
	require.Equal(t, "decided", line["msg"])
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	log := New(Options{Output: &bytes.Buffer{}})
	require.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestDiscard_WritesNowhere(t *testing.T) {
	log := Discard()
	require.Equal(t, io.Discard, log.Out)
	log.Info("dropped")
}
