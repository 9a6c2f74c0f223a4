// internal/infrastructure/logger/logger_test.go
package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONLogger(t *testing.T) {
	// Setup a buffer to capture output
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	// Test debug level logging
	logger.Debug("Debug message", map[string]interface{}{
		"key1": "value1",
	})

	// Parse and verify the output
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)

	assert.NoError(t, err)
	assert.Equal(t, "DEBUG", logEntry["level"])
	assert.Equal(t, "Debug message", logEntry["message"])
	assert.Equal(t, "value1", logEntry["key1"])
	assert.Contains(t, logEntry, "timestamp")
	assert.Contains(t, logEntry["caller"], "logger_test.go")

	// Test that log levels are respected
	buf.Reset()
	warnLogger := NewJSONLogger(&buf, WarnLevel)

	// This should not log anything (debug < warn)
	warnLogger.Debug("Should not appear", nil)
	assert.Equal(t, "", buf.String())

	// This should log
	warnLogger.Warn("Warning message", nil)
	assert.Contains(t, buf.String(), "Warning message")

	// Test WithField
	buf.Reset()
	fieldLogger := logger.WithField("context", "test")
	fieldLogger.Info("With field", nil)

	logEntry = map[string]interface{}{}
	err = json.Unmarshal(buf.Bytes(), &logEntry)

	assert.NoError(t, err)
	assert.Equal(t, "test", logEntry["context"])
	assert.Equal(t, "With field", logEntry["message"])

	// Test WithFields
	buf.Reset()
	fieldsLogger := logger.WithFields(map[string]interface{}{
		"app":     "test-app",
		"version": "1.0.0",
	})
	fieldsLogger.Info("With fields", nil)

	logEntry = map[string]interface{}{}
	err = json.Unmarshal(buf.Bytes(), &logEntry)

	assert.NoError(t, err)
	assert.Equal(t, "test-app", logEntry["app"])
	assert.Equal(t, "1.0.0", logEntry["version"])
	assert.Equal(t, "With fields", logEntry["message"])

	// Test log levels
	buf.Reset()
	infoLogger := NewJSONLogger(&buf, InfoLevel)

	infoLogger.Debug("Debug", nil) // Shouldn't log
	assert.Equal(t, "", buf.String())

	infoLogger.Info("Info", nil) // Should log
	assert.Contains(t, buf.String(), "Info")

	buf.Reset()
	infoLogger.Warn("Warn", nil) // Should log
	assert.Contains(t, buf.String(), "Warn")

	buf.Reset()
	infoLogger.Error("Error", nil) // Should log
	assert.Contains(t, buf.String(), "Error")
}

func TestErrorFieldsAreStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Error("Save failed", map[string]interface{}{
		"error": errors.New("disk full"),
	})

	var logEntry map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "disk full", logEntry["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel(" Warn "))
	assert.Equal(t, ErrorLevel, ParseLevel("ERROR"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("dropped", map[string]interface{}{"k": "v"})
	assert.NotNil(t, logger.WithField("k", "v"))
}

func TestGetDefaultLogger(t *testing.T) {
	logger := GetDefaultLogger()
	assert.NotNil(t, logger)
}

func TestSetDefaultLogger(t *testing.T) {
	originalLogger := GetDefaultLogger()

	var buf bytes.Buffer
	newLogger := NewJSONLogger(&buf, DebugLevel)

	SetDefaultLogger(newLogger)
	Info("through default", nil)
	assert.Contains(t, buf.String(), "through default")

	// Reset to original
	SetDefaultLogger(originalLogger)
}
