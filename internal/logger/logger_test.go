package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestProperty_LogsAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all log entries are in structured JSON format", prop.ForAll(
		func(message string, level string) bool {
			var buf bytes.Buffer

			encoderConfig := zap.NewProductionEncoderConfig()
			encoderConfig.TimeKey = "timestamp"
			encoderConfig.MessageKey = "message"

			core := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(&buf),
				zapcore.DebugLevel,
			)
			logger := zap.New(core)

			switch level {
			case "debug":
				logger.Debug(message)
			case "warn":
				logger.Warn(message)
			case "error":
				logger.Error(message)
			default:
				logger.Info(message)
			}

			var logEntry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
				return false
			}

			for _, key := range []string{"level", "timestamp", "message"} {
				if _, ok := logEntry[key]; !ok {
					return false
				}
			}
			return logEntry["message"] == message
		},
		gen.AnyString(),
		gen.OneConstOf("debug", "info", "warn", "error"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNew_WritesOnlyErrorsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "error.log")

	logger, err := New("production", path)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("request served", zap.String("path", "/api/products"))
	logger.Warn("showAll ignored for anonymous caller")
	logger.Error("panic recovered", zap.String("error", "boom"))
	_ = logger.Sync()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open error log: %v", err)
	}
	defer f.Close()

	var entries []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("Error log line is not JSON: %v", err)
		}
		entries = append(entries, entry)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected exactly one entry in error log, got %d", len(entries))
	}
	if entries[0]["msg"] != "panic recovered" || entries[0]["error"] != "boom" {
		t.Errorf("Unexpected error log entry: %v", entries[0])
	}
	if _, ok := entries[0]["timestamp"]; !ok {
		t.Error("Error log entry has no timestamp")
	}
}

func TestNew_WithoutErrorFile(t *testing.T) {
	logger, err := New("development", "")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Development logger should enable debug level")
	}
}
