package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// DispatchConfig controls asynchronous delivery.
type DispatchConfig struct {
	// Async enables the background dispatcher. When false, Log.Record
	// writes to the sink before returning.
	Async      bool
	BufferSize int
	// DropIfFull drops entries instead of blocking when the buffer is full.
	// A dropped entry leaves a visible gap in the hash chain.
	DropIfFull bool
}

type dispatchItem struct {
	entry Entry
	ack   chan struct{}
}

// dispatcher forwards entries to deliver on one goroutine, preserving order.
type dispatcher struct {
	cfg       DispatchConfig
	deliver   func(Entry)
	ch        chan dispatchItem
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newDispatcher(cfg DispatchConfig, deliver func(Entry)) *dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	d := &dispatcher{
		cfg:     cfg,
		deliver: deliver,
		ch:      make(chan dispatchItem, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case item := <-d.ch:
			d.handle(item)
		case <-d.done:
			for {
				select {
				case item := <-d.ch:
					d.handle(item)
				default:
					return
				}
			}
		}
	}
}

func (d *dispatcher) handle(item dispatchItem) {
	if item.ack != nil {
		close(item.ack)
		return
	}
	d.deliver(item.entry)
}

// enqueue reports whether the entry was accepted.
func (d *dispatcher) enqueue(ctx context.Context, entry Entry) bool {
	if d.closed.Load() {
		d.dropped.Add(1)
		return false
	}

	item := dispatchItem{entry: entry}
	if d.cfg.DropIfFull {
		select {
		case d.ch <- item:
			return true
		default:
			d.dropped.Add(1)
			return false
		}
	}

	select {
	case d.ch <- item:
		return true
	case <-ctx.Done():
		d.dropped.Add(1)
		return false
	case <-d.done:
		d.dropped.Add(1)
		return false
	}
}

// flush blocks until every entry enqueued before the call was delivered.
func (d *dispatcher) flush(ctx context.Context) error {
	if d.closed.Load() {
		return nil
	}
	ack := make(chan struct{})
	select {
	case d.ch <- dispatchItem{ack: ack}:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return nil
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *dispatcher) close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}
