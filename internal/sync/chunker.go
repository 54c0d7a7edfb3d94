package sync

// chunker accumulates parser batches and hands exactly threshold records at
// a time to write, carrying the remainder into the next chunk. close writes
// whatever is left.
type chunker[T any] struct {
	threshold int
	write     func([]T) error

	buf     []T
	chunks  int
	written int
}

func newChunker[T any](threshold int, write func([]T) error) *chunker[T] {
	return &chunker[T]{
		threshold: threshold,
		write:     write,
		buf:       make([]T, 0, threshold),
	}
}

func (c *chunker[T]) add(rec T) error {
	c.buf = append(c.buf, rec)

	if len(c.buf) < c.threshold {
		return nil
	}

	return c.flush()
}

func (c *chunker[T]) close() error {
	if len(c.buf) == 0 {
		return nil
	}

	return c.flush()
}

func (c *chunker[T]) flush() error {
	if err := c.write(c.buf); err != nil {
		return err
	}

	c.chunks++
	c.written += len(c.buf)
	c.buf = c.buf[:0]

	return nil
}
