//go:build !nogpu

package gpu

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/gogpu/raymarch"
)

func TestBackendLogger_FallsBackToPackageLogger(t *testing.T) {
	b := New()
	if b.logger() != raymarch.Logger() {
		t.Error("unset backend logger should be raymarch.Logger()")
	}

	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	b.SetLogger(custom)
	if b.logger() != custom {
		t.Error("SetLogger did not take effect")
	}
	b.logger().Debug("gpu: test message")
	if buf.Len() == 0 {
		t.Error("custom logger received no output")
	}

	b.SetLogger(nil)
	if b.logger() != raymarch.Logger() {
		t.Error("SetLogger(nil) should fall back to raymarch.Logger()")
	}
}
