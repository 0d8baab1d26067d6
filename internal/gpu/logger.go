//go:build !nogpu

package gpu

import (
	"log/slog"

	"github.com/gogpu/raymarch"
)

// SetLogger receives the logger propagated by raymarch.SetLogger.
// Pass nil to fall back to raymarch.Logger.
func (b *Backend) SetLogger(l *slog.Logger) {
	b.log.Store(l)
}

// logger returns the logger set on b, or the raymarch package logger.
func (b *Backend) logger() *slog.Logger {
	if l := b.log.Load(); l != nil {
		return l
	}
	return raymarch.Logger()
}
