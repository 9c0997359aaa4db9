//go:build !zmq

package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// startBlockSignal needs the zmq build tag; without it the auditor only polls.
func startBlockSignal(_ context.Context, addr string, _ *zap.Logger) (<-chan struct{}, error) {
	if addr == "" {
		return nil, nil
	}
	return nil, errors.New("zmq block signal requested but the binary was built without the zmq tag")
}
