package denoise

import "sync/atomic"

// CancelToken is a cooperative cancellation flag. It may be raised from any
// goroutine; the denoiser polls it between batches.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken returns a token that is not cancelled
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel raises the flag
func (t *CancelToken) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether Cancel has been called
func (t *CancelToken) Cancelled() bool {
	return t.flag.Load()
}
