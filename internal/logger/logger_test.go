package logger

import (
	"testing"

	"github.com/samvad-hq/userdesk/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestParseLevelIgnoresCaseAndSpace(t *testing.T) {
	cases := []struct {
		raw  string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{" Warn ", zapcore.WarnLevel},
		{"WARNING", zapcore.WarnLevel},
		{"Error", zapcore.ErrorLevel},
		{"INFO", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.raw); got != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestInitHonorsUppercaseLevel(t *testing.T) {
	l, err := Init(&config.Config{AppName: "userdesk", Env: "test", LogLevel: "DEBUG"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	if !l.sugar.Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}
}
