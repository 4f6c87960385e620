package backend

// queue is an unbounded FIFO channel: sends on in never block, the
// pump goroutine buffers in between. Closing in drains the buffer and
// then closes out.
type queue[T any] struct {
	in  chan T
	out chan T
}

func newQueue[T any]() *queue[T] {
	q := &queue[T]{
		in:  make(chan T),
		out: make(chan T),
	}
	go q.pump()
	return q
}

func (q *queue[T]) pump() {
	var buf []T
	in := q.in
	for in != nil || len(buf) > 0 {
		var (
			out  chan T
			head T
		)
		if len(buf) > 0 {
			out = q.out
			head = buf[0]
		}
		select {
		case v, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, v)
		case out <- head:
			buf = buf[1:]
		}
	}
	close(q.out)
}
