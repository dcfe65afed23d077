package game

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/ambient/config"
)

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestNewLogger_ConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ambient.log")
	var console bytes.Buffer

	logger, closer, err := NewLogger(config.LoggingConfig{
		Level:      "debug",
		Format:     "text",
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
	}, &console)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("burst spawned", "count", 20)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for name, got := range map[string]string{"console": console.String(), "file": string(data)} {
		if !strings.Contains(got, "burst spawned") || !strings.Contains(got, "count=20") {
			t.Errorf("%s output = %q", name, got)
		}
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var console bytes.Buffer
	logger, closer, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &console)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(console.String(), "hidden") || !strings.Contains(console.String(), `"msg":"shown"`) {
		t.Errorf("output = %q", console.String())
	}
}

func TestNewLogger_NoSinks(t *testing.T) {
	logger, closer, err := NewLogger(config.LoggingConfig{Level: "info"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("dropped")
	if err := closer.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestNewLogger_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
		want string
	}{
		{"bad level", config.LoggingConfig{Level: "loud"}, "logging.level"},
		{"bad format", config.LoggingConfig{Level: "info", Format: "xml"}, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewLogger(tt.cfg, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
