package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			log, err := New(Config{Level: tt.in})
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.in, err)
			}
			if got := log.(*zapLogger).logger.Level(); got != tt.want {
				t.Errorf("New(%q) level = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_UnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "bogus"}); err == nil {
		t.Error("New(bogus) error = nil, want error")
	}
}

func TestNopLogger(t *testing.T) {
	log := NewNop().With(String("component", "test"))
	log.Info("ignored", Int("n", 1), Error(errors.New("boom")))
	if err := log.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}
