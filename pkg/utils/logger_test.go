package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		debugOn   bool
		warnOn    bool
		infoShown bool
	}{
		{"debug mode logs everything", true, true, true, true},
		{"normal mode keeps command output clean", false, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.debug)
			if err != nil {
				t.Fatalf("NewLogger(%v) error: %v", tt.debug, err)
			}
			if logger == nil {
				t.Fatalf("NewLogger(%v) returned nil logger", tt.debug)
			}
			core := logger.Core()
			if got := core.Enabled(zapcore.DebugLevel); got != tt.debugOn {
				t.Errorf("debug enabled = %v, want %v", got, tt.debugOn)
			}
			if got := core.Enabled(zapcore.InfoLevel); got != tt.infoShown {
				t.Errorf("info enabled = %v, want %v", got, tt.infoShown)
			}
			if got := core.Enabled(zapcore.WarnLevel); got != tt.warnOn {
				t.Errorf("warn enabled = %v, want %v", got, tt.warnOn)
			}
			_ = logger.Sync()
		})
	}
}
