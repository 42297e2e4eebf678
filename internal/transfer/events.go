package transfer

import (
	"context"
	"io"
	"iter"
)

// Events runs Copy lazily and yields each progress report as it happens.
// If the transfer fails the last element carries the error. Breaking out of
// the loop cancels the transfer at the next chunk boundary. The sequence can
// be ranged over only once.
func Events(ctx context.Context, dst io.Writer, src io.Reader, opts ...Option) iter.Seq2[Progress, error] {
	used := false
	return func(yield func(Progress, error) bool) {
		if used {
			return
		}
		used = true

		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stopped := false
		report := func(p Progress) {
			if stopped {
				return
			}
			if !yield(p, nil) {
				stopped = true
				cancel()
			}
		}

		opts = append(opts[:len(opts):len(opts)], WithProgress(report))
		_, err := Copy(ctx, dst, src, opts...)
		if err != nil && !stopped {
			yield(Progress{}, err)
		}
	}
}
