package utils

import (
	"context"
	"io"
)

// CancelOnClose ties a context cancel func to the lifetime of a body.
// Closing the body releases the context.
type CancelOnClose struct {
	io.ReadCloser
	Cancel context.CancelFunc
}

func (c *CancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	if c.Cancel != nil {
		c.Cancel()
	}
	return err
}

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical.
func Close(c io.Closer) {
	_ = c.Close()
}
