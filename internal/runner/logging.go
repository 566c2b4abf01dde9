package runner

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// FailureLogger logs failed iterations.
type FailureLogger interface {
	LogFailure(vu VU, err error)
}

// loggingRequester wraps a Requester with failure logging.
type loggingRequester struct {
	inner  Requester
	logger FailureLogger
}

// WithLogging wraps a Requester to log failures.
func WithLogging(req Requester, logger FailureLogger) Requester {
	if logger == nil {
		return req
	}
	return &loggingRequester{
		inner:  req,
		logger: logger,
	}
}

func (l *loggingRequester) Do(ctx context.Context, vu VU) error {
	err := l.inner.Do(ctx, vu)
	if err != nil && l.logger != nil {
		l.logger.LogFailure(vu, err)
	}
	return err
}

// WriterLogger writes one line per failure. Writes are serialized.
type WriterLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{w: w}
}

func (l *WriterLogger) LogFailure(vu VU, err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[vuload] iteration failed (vu=%d iter=%d): %v\n", vu.ID, vu.Iteration, err)
}
