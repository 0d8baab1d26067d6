//go:build !nogpu

package main

import (
	"log/slog"

	"github.com/gogpu/raymarch"
	gpuimpl "github.com/gogpu/raymarch/internal/gpu"
)

func newGPUBackend(logger *slog.Logger) (raymarch.ComputeBackend, error) {
	b := gpuimpl.New()
	b.SetLogger(logger)
	if err := b.Init(); err != nil {
		return nil, err
	}
	logger.Info("using GPU backend", "adapter", b.Info().Name)
	return b, nil
}
