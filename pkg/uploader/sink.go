// Package uploader synchronises the latest local record set to a remote
// store, one row at a time.
package uploader

import (
	"context"
	"fmt"

	"tweetsync/pkg/config"
	"tweetsync/pkg/models"
)

// Sink delivers a single row to the remote store. Implementations never
// retry; they classify the attempt and describe failures in detail.
type Sink interface {
	Send(ctx context.Context, row models.Row) (models.UploadStatus, string)
	Close() error
}

// NewSink builds the sink selected by cfg.Sink. Call cfg.Validate first.
func NewSink(ctx context.Context, cfg config.RemoteConfig) (Sink, error) {
	switch cfg.Sink {
	case config.SinkREST, "":
		return NewRESTSink(cfg), nil
	case config.SinkPostgres:
		return OpenPostgresSink(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown remote sink %q", cfg.Sink)
	}
}
