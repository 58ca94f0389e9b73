// Package cloud hands finished exports to their destination: object storage
// for the rendered file and an optional webhook for completion events.
package cloud

import (
	"context"
	"log/slog"
)

// Publisher moves a rendered output to its final location and returns
// where it can be found.
type Publisher interface {
	Publish(ctx context.Context, exportID, path string) (string, error)
}

// StubPublisher keeps outputs on local disk.
type StubPublisher struct {
	logger *slog.Logger
}

func NewStubPublisher(logger *slog.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) Publish(ctx context.Context, exportID, path string) (string, error) {
	p.logger.Info("publish stub: keeping output local", "export_id", exportID)
	return path, nil
}
