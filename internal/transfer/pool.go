package transfer

import "sync"

// Pool is a wrapper around sync.Pool handing out fixed-size transfer buffers.
type Pool struct {
	size int
	pool sync.Pool
}

// NewPool returns a Pool of buffers of the given size.
func NewPool(size int) *Pool {
	p := &Pool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

// Size returns the length of buffers handed out by the pool.
func (p *Pool) Size() int {
	return p.size
}

// Get borrows a Buffer. Release it when the work is done.
func (p *Pool) Get() Buffer {
	buf := p.pool.Get().(*[]byte)
	return Buffer{Data: *buf, buf: buf, pool: p}
}

// Buffer is a borrowed byte slice that remembers the Pool it came from.
type Buffer struct {
	Data []byte
	buf  *[]byte
	pool *Pool
}

// Release returns the Buffer to its Pool. Data must not be used afterwards.
func (b Buffer) Release() {
	// pointer-like argument avoids an allocation in Put
	b.pool.pool.Put(b.buf)
}

var pools sync.Map // int -> *Pool

func poolFor(size int) *Pool {
	if p, ok := pools.Load(size); ok {
		return p.(*Pool)
	}
	p, _ := pools.LoadOrStore(size, NewPool(size))
	return p.(*Pool)
}
