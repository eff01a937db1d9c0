package main

import (
	"fmt"
	"io"
	"sync"
)

// progressReporter 每前进 10% 打印一次
type progressReporter struct {
	mu   sync.Mutex
	w    io.Writer
	last int
}

func newProgressReporter(w io.Writer) *progressReporter {
	return &progressReporter{w: w, last: -1}
}

func (p *progressReporter) update(progress float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	step := int(progress * 10)
	if step <= p.last {
		return
	}
	p.last = step
	fmt.Fprintf(p.w, "进度 %3d%%\n", step*10)
}
