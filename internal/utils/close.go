package utils

import (
	"io"

	"github.com/MrSnakeDoc/ideabox/internal/logger"
)

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical.
func Close(c io.Closer) {
	_ = c.Close()
}

// MustClose closes c and logs any error under name.
func MustClose(log logger.Logger, name string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("resource", name), logger.Error(err))
		return
	}
	log.Debug("closed", logger.String("resource", name))
}

// CloserFunc adapts a plain func() to io.Closer, for pools whose Close returns nothing.
type CloserFunc func()

func (f CloserFunc) Close() error {
	f()
	return nil
}
