package sink

import (
	"context"
	"os"
	"path/filepath"

	"medteam/pkg/errors"
	"medteam/pkg/logger"
)

// Sink persists the final diagnosis text.
type Sink interface {
	Save(ctx context.Context, text, destination string) error
}

// FileSink writes the text to a local file, creating parent directories.
type FileSink struct {
	log *logger.Logger
}

var _ Sink = (*FileSink)(nil)

// NewFileSink creates a file sink.
func NewFileSink() *FileSink {
	return &FileSink{log: logger.Component("file_sink")}
}

// Save replaces any existing content at destination with text.
func (s *FileSink) Save(_ context.Context, text, destination string) error {
	if destination == "" {
		return errors.Wrap(errors.ErrIO, "destination path is empty")
	}

	if dir := filepath.Dir(destination); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Tag(errors.Wrapf(err, "create directory %s", dir), errors.ErrIO)
		}
	}

	if err := os.WriteFile(destination, []byte(text), 0o644); err != nil {
		return errors.Tag(errors.Wrapf(err, "write %s", destination), errors.ErrIO)
	}

	s.log.Infof("Final diagnosis has been saved to %s", destination)
	return nil
}
