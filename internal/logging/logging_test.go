package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"console info", "info", FormatConsole, false},
		{"json debug", "debug", FormatJSON, false},
		{"bad level", "loud", FormatJSON, true},
		{"bad format", "info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			want, _ := zapcore.ParseLevel(tt.level)
			if !logger.Core().Enabled(want) {
				t.Errorf("level %s not enabled", tt.level)
			}
			if want > zapcore.DebugLevel && logger.Core().Enabled(want-1) {
				t.Errorf("level below %s enabled", tt.level)
			}
		})
	}
}
