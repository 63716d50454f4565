package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	assert.Equal(t, "test", entry.Entry.Data["component"])
}

func TestConfigureInvalidLevel(t *testing.T) {
	// keep LOG_LEVEL from overriding the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	require.Error(t, log.Configure("invalid", "json", "stdout", 0))
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	require.Error(t, log.Configure("info", "xml", "stdout", 0))
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	path := filepath.Join(t.TempDir(), "fundingflow.log")
	require.NoError(t, log.Configure("debug", "text", path, 0))
	log.WithComponent("test").Debug("hello")
}

func TestJSONOutputUsesRenamedKeys(t *testing.T) {
	log := Logger()
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithComponent("stream").WithFields(Fields{"exchange": "okx"}).Info("connected")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "connected", decoded["message"])
	assert.Equal(t, "info", decoded["level"])
	assert.Equal(t, "okx", decoded["exchange"])
	assert.Contains(t, decoded, "timestamp")
}

func TestWarnIncrementsReportCounter(t *testing.T) {
	log := Logger()
	log.SetOutput(&bytes.Buffer{})
	before := atomic.LoadInt64(&warnsTotal)

	log.WithComponent("stream").Warn("dropped")

	assert.Equal(t, before+1, atomic.LoadInt64(&warnsTotal))
}

func TestRecordStreamMessageAccumulates(t *testing.T) {
	RecordStreamMessage("test-venue", 10)
	RecordStreamMessage("test-venue", 5)
	RecordUpdate("test-venue")

	s := stat("test-venue")
	assert.Equal(t, int64(2), atomic.LoadInt64(&s.messages))
	assert.Equal(t, int64(15), atomic.LoadInt64(&s.bytes))
	assert.Equal(t, int64(1), atomic.LoadInt64(&s.updates))
}
