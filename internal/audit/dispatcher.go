package audit

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Stats counts what happened to emitted events.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	// SinkPanics counts events whose sink panicked. They are not Delivered.
	SinkPanics uint64
}

// Dispatcher relays session events to a caller-supplied sink on its own
// goroutine, so a slow sink never holds up a login or refresh. A nil
// *Dispatcher is valid and discards everything.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event
	stop  chan struct{}
	idle  sync.WaitGroup

	delivered  atomic.Uint64
	dropped    atomic.Uint64
	sinkPanics atomic.Uint64

	closing   atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:   cfg,
		sink:  sink,
		queue: make(chan Event, cfg.BufferSize),
		stop:  make(chan struct{}),
	}
	d.idle.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.idle.Done()
	for {
		select {
		case event := <-d.queue:
			d.send(event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain delivers events accepted before Close.
func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.send(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) send(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.sinkPanics.Add(1)
			log.Printf("authclient: audit sink panicked on %s: %v", event.EventType, r)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. With DropIfFull a full buffer drops the event; otherwise
// Emit blocks until there is room, ctx is done, or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close stops accepting events and returns once the queued ones reached the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.idle.Wait()
	})
}

// Stats returns the current counts. It is zero for a nil Dispatcher.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered:  d.delivered.Load(),
		Dropped:    d.dropped.Load(),
		SinkPanics: d.sinkPanics.Load(),
	}
}

// Dropped is Stats().Dropped.
func (d *Dispatcher) Dropped() uint64 {
	return d.Stats().Dropped
}
