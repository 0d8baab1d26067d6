//go:build nogpu

package main

import (
	"errors"
	"log/slog"

	"github.com/gogpu/raymarch"
)

func newGPUBackend(*slog.Logger) (raymarch.ComputeBackend, error) {
	return nil, errors.New("built with nogpu")
}
