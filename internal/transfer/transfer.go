// Package transfer copies a byte stream from a source to a destination through
// a fixed-size reusable buffer, reporting progress after every chunk and
// honouring context cancellation between chunks.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultBufferSize is the chunk size used when no buffer size is given.
const DefaultBufferSize = 64 * 1024

// maxEmptyReads is how many consecutive (0, nil) reads are tolerated before
// the source is considered stuck and Copy fails with io.ErrNoProgress.
const maxEmptyReads = 100

var errInvalidWrite = errors.New("invalid write result")

// Copy moves bytes from src to dst until src reports io.EOF.
// A source that keeps returning (0, nil) fails with an *IOError wrapping
// io.ErrNoProgress after maxEmptyReads attempts.
//
// Before any data is read a single Unknown progress report is emitted. After
// every chunk written a new report follows: a fraction when the total size is
// known and positive, Unknown otherwise. The context is checked once per chunk
// boundary; an in-flight Read or Write is never interrupted. Streams are never
// closed and partial output is left in dst on failure.
//
// Copy returns the number of bytes written to dst.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, opts ...Option) (int64, error) {
	if ctx == nil {
		return 0, fmt.Errorf("%w: nil context", ErrInvalidArgument)
	}
	if dst == nil {
		return 0, fmt.Errorf("%w: nil destination", ErrInvalidArgument)
	}
	if src == nil {
		return 0, fmt.Errorf("%w: nil source", ErrInvalidArgument)
	}

	o := newOptions(opts)
	size := o.bufferSize
	if o.pool != nil {
		size = o.pool.Size()
	}
	if size <= 0 {
		return 0, fmt.Errorf("%w: buffer size %d", ErrInvalidArgument, size)
	}

	o.report(Progress{Total: o.total})

	pool := o.pool
	if pool == nil {
		pool = poolFor(o.bufferSize)
	}
	buf := pool.Get()
	defer buf.Release()

	var written int64
	empty := 0
	for {
		if ctx.Err() != nil {
			return written, cancelled(ctx, written)
		}

		n, rerr := src.Read(buf.Data)
		if n > 0 {
			empty = 0
			w, werr := dst.Write(buf.Data[:n])
			if w < 0 || w > n {
				w = 0
				if werr == nil {
					werr = errInvalidWrite
				}
			}
			written += int64(w)
			if werr != nil {
				return written, &IOError{Op: OpWrite, Transferred: written, Err: werr}
			}
			if w != n {
				return written, &IOError{Op: OpWrite, Transferred: written, Err: io.ErrShortWrite}
			}
			o.report(progressAt(written, o.total))
		}

		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, &IOError{Op: OpRead, Transferred: written, Err: rerr}
		}
		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return written, &IOError{Op: OpRead, Transferred: written, Err: io.ErrNoProgress}
			}
		}
	}
}
