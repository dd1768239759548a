package internal

import (
	"bytes"
	"context"
	"math/rand"
	"sync"
	"time"
)

// Retry backoff with jitter sleep to prevent overloaded conditions during intervals
// https://www.awsarchitectureblog.com/2015/03/backoff.html
func RetryBackoff(retry int, minBackoff, maxBackoff time.Duration) time.Duration {
	if retry < 0 {
		retry = 0
	}

	backoff := minBackoff << uint(retry)
	if backoff > maxBackoff || backoff < minBackoff {
		backoff = maxBackoff
	}

	if backoff == 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(backoff)))
}

var bufPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

func GetBuffer() *bytes.Buffer {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func PutBuffer(buf *bytes.Buffer) {
	bufPool.Put(buf)
}

// Sleep blocks for d, returning early with ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d == 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	if ctx == nil || ctx.Done() == nil {
		<-t.C
		return nil
	}

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AssertOneRow returns ErrNoRows or ErrMultiRows if n != 1.
func AssertOneRow(n int) error {
	switch {
	case n == 0:
		return ErrNoRows
	case n > 1:
		return ErrMultiRows
	}
	return nil
}

// Unwrap returns the error if it originates from this package's own
// classification (and is therefore safe to surface as-is), or nil otherwise.
func Unwrap(err error) error {
	if _, ok := err.(Error); ok {
		return err
	}
	return nil
}
