package transfer

// Option configures a single call to Copy or Events.
type Option func(*options)

type options struct {
	total      int64
	progress   ProgressFunc
	bufferSize int
	pool       *Pool
}

func newOptions(opts []Option) options {
	o := options{
		total:      -1,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) report(p Progress) {
	if o.progress != nil {
		o.progress(p)
	}
}

// WithTotalSize sets the expected number of bytes. Zero or a negative value
// means the size is unknown.
func WithTotalSize(n int64) Option {
	return func(o *options) {
		o.total = n
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithBufferSize sets the chunk size. It also sets the progress granularity.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithPool borrows the transfer buffer from p instead of the shared pool for
// the configured buffer size. WithBufferSize is ignored when a pool is set.
func WithPool(p *Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}
