package capture

// bufferPool is a fixed set of equally sized frame buffers.
type bufferPool struct {
	free chan []byte
	size int
}

func newBufferPool(count, size int) *bufferPool {
	p := &bufferPool{free: make(chan []byte, count), size: size}
	for range count {
		p.free <- make([]byte, size)
	}
	return p
}

// Get returns a free buffer or nil when all are in use.
func (p *bufferPool) Get() []byte {
	select {
	case b := <-p.free:
		return b
	default:
		return nil
	}
}

// Put returns a buffer obtained from Get.
func (p *bufferPool) Put(b []byte) {
	if len(b) != p.size {
		return
	}
	select {
	case p.free <- b:
	default:
	}
}

// Available returns the number of free buffers.
func (p *bufferPool) Available() int {
	return len(p.free)
}
