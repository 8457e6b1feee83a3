package main

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/muurk/castcore/internal/logging"
)

func TestInitLogging(t *testing.T) {
	defer logging.SetLogger(nil)

	tests := []struct {
		name     string
		flag     string
		env      string
		enabled  zapcore.Level
		disabled zapcore.Level
	}{
		{name: "env when flag empty", flag: "", env: "error", enabled: zapcore.ErrorLevel, disabled: zapcore.WarnLevel},
		{name: "flag wins over env", flag: "warn", env: "error", enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(logging.LogLevelEnvVar, tt.env)
			if err := initLogging(tt.flag); err != nil {
				t.Fatalf("initLogging(%q) error = %v", tt.flag, err)
			}
			core := logging.GetLogger().Core()
			if !core.Enabled(tt.enabled) {
				t.Errorf("level %v should be enabled", tt.enabled)
			}
			if core.Enabled(tt.disabled) {
				t.Errorf("level %v should be disabled", tt.disabled)
			}
		})
	}

	t.Setenv(logging.LogLevelEnvVar, "")
	if err := initLogging(""); err != nil {
		t.Fatalf("initLogging() error = %v", err)
	}
	if logging.GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent with no flag and no env")
	}
}
