package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newLogger(buf, "warn", "production")
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = newLogger(buf, "nonsense", "development")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestAuditLoggerWagerPlaced(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogWagerPlaced("2024-06-01", "alice", "r1", 4, 0)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "alice", logEntry["participant_id"])
	assert.Equal(t, float64(4), logEntry["horse"])
}

func TestAuditLoggerDayCompleted(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	id := uuid.New()
	auditLogger.LogDayCompleted("2024-06-01", id, 3, 12, time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, id.String(), logEntry["archive_id"])
	assert.Equal(t, float64(12), logEntry["top_score"])
}

func TestAuditLoggerCompletionReplayed(t *testing.T) {
	log, buf := setupTestLogger()
	NewAuditLogger(log).LogCompletionReplayed("2024-06-01")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
}

func TestScoringLoggerIntegrityWarning(t *testing.T) {
	log, buf := setupTestLogger()
	scoringLogger := NewScoringLogger(log)

	scoringLogger.LogIntegrityWarning("2024-06-01", "r2", 9)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "scoring", logEntry["component"])
	assert.Equal(t, true, logEntry["integrity_warning"])
	assert.Equal(t, "r2", logEntry["race_id"])
}

func TestScoringLoggerReconciliation(t *testing.T) {
	log, buf := setupTestLogger()
	NewScoringLogger(log).LogReconciliation(5, 2, false)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, float64(2), logEntry["discrepancies"])
}
