package service

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

type options struct {
	tempDir string
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures the services in this package.
type Option func(*options)

// WithTempDir sets where uploads are spooled before they reach the content store.
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the time source used for uploaded_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{
		tempDir: os.TempDir(),
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
