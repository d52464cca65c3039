// Package eventloop is the L2 layer: it runs the matching engine's
// consumer thread against the spsc.Queue and implements the
// cooperative shutdown protocol. Its lifecycle idiom (Start/Stop,
// atomic sequence counters, "[component] started/stopped" logging) is
// carried over from the teacher's internal/sequencer package; the
// buffered channel that package used for decoupling is replaced with
// the spsc.Queue so the producer side gets a true non-blocking
// try_push instead of a blocking channel send.
package eventloop

import (
	"context"
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/nathanyu/stock-exchange/internal/domain"
	"github.com/nathanyu/stock-exchange/internal/matching"
	"github.com/nathanyu/stock-exchange/internal/spsc"
	"github.com/nathanyu/stock-exchange/internal/telemetry"
)

// Loop drains a spsc.Queue of domain.Event on a dedicated goroutine and
// dispatches each one to the matching engine. The matching engine and
// every order book it owns are touched exclusively by this goroutine
// once Start has been called — the queries channel below is the only
// other entry point, and it too only ever runs its callback from this
// same goroutine.
type Loop struct {
	queue   *spsc.Queue[*domain.Event]
	engine  *matching.Engine
	queries chan func()

	shutdownRequested atomic.Bool
	dispatched        atomic.Uint64
	done              chan struct{}
}

// New wires a Loop to engine over a freshly created queue of the given
// capacity (rounded up to a power of two; <=0 uses the spec's
// recommended 8192 default).
func New(engine *matching.Engine, queueCapacity int) *Loop {
	return &Loop{
		queue:   spsc.New[*domain.Event](queueCapacity),
		engine:  engine,
		queries: make(chan func(), 64),
		done:    make(chan struct{}),
	}
}

// Queue returns the loop's ingress queue, for producers to push into.
func (l *Loop) Queue() *spsc.Queue[*domain.Event] { return l.queue }

// Start launches the consumer goroutine. Call it once.
func (l *Loop) Start() {
	go l.run()
}

// Done returns a channel that closes once the consumer goroutine has
// observed shutdown and drained the queue. Callers join by receiving
// from it, the Go equivalent of the producer's thread-join in §4.3.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Dispatched returns the number of events this loop has processed so
// far. Safe to call from any goroutine.
func (l *Loop) Dispatched() uint64 {
	return l.dispatched.Load()
}

// RequestShutdown signals the consumer to exit once the queue is
// drained. It must only be called after the producer has stopped
// pushing and has observed the queue empty — see Pipeline.Shutdown for
// the full protocol.
func (l *Loop) RequestShutdown() {
	l.shutdownRequested.Store(true)
}

// run is the consumer loop: spin-drain the queue; once shutdown has
// been requested, keep draining until the queue reads empty, then
// exit. This ordering guarantees every event pushed before shutdown
// was requested is dispatched before the loop exits. Pending queries
// are serviced between dispatches so a read-only snapshot request never
// waits behind an unbounded run of new-order traffic.
func (l *Loop) run() {
	log.Println("[eventloop] started")
	defer close(l.done)

	for {
		select {
		case q := <-l.queries:
			q()
			continue
		default:
		}

		ev, ok := l.queue.TryPop()
		if !ok {
			if l.shutdownRequested.Load() && l.queue.Empty() {
				log.Println("[eventloop] stopped")
				return
			}
			runtime.Gosched()
			continue
		}
		l.dispatch(ev)
		n := l.dispatched.Add(1)
		telemetry.EventsDispatched.Set(float64(n))
		telemetry.QueueDepth.Set(float64(l.queue.Len()))
	}
}

// RunQuery schedules fn to run on the consumer goroutine — the only
// goroutine allowed to touch the matching engine's books — and blocks
// until it has run. It is the escape hatch for read-only query paths
// (e.g. a depth snapshot) that must not reach into a book from any
// other goroutine.
func (l *Loop) RunQuery(fn func()) {
	done := make(chan struct{})
	l.queries <- func() {
		fn()
		close(done)
	}
	<-done
}

func (l *Loop) dispatch(ev *domain.Event) {
	defer telemetry.Start("dispatch")()

	_, span := telemetry.StartSpan(context.Background(), "eventloop.dispatch")
	defer span.End()

	switch ev.Kind {
	case domain.EventKindNew:
		if err := l.engine.OnNewOrder(*ev.New, ev.TsNs); err != nil {
			log.Printf("[eventloop] new order %d rejected: %v", ev.New.ID, err)
		}
	case domain.EventKindCancel:
		l.engine.OnCancel(*ev.Cancel)
	}
}

// Pipeline pairs a Loop with the producer-side push API, so callers
// never touch the raw spsc.Queue directly and can't violate the
// shutdown ordering by accident.
type Pipeline struct {
	loop *Loop

	// pushMu serializes Push across callers. spsc.Queue is a true
	// single-producer ring — concurrent TryPush calls race on the same
	// tail slot — but §4.3's single-producer contract is internal to
	// the ring, not a constraint the HTTP boundary can satisfy on its
	// own: gin serves every request on its own goroutine, and the
	// gateway's synthetic-order seeder runs on another. This mutex is
	// what turns that many-goroutine boundary back into the one logical
	// producer the ring requires, without asking every caller to agree
	// on their own serialization scheme.
	pushMu sync.Mutex
}

// NewPipeline builds and starts a pipeline feeding engine, with a ring
// of the given capacity.
func NewPipeline(engine *matching.Engine, queueCapacity int) *Pipeline {
	p := &Pipeline{loop: New(engine, queueCapacity)}
	p.loop.Start()
	return p
}

// Loop exposes the underlying event loop, e.g. for Dispatched().
func (p *Pipeline) Loop() *Loop { return p.loop }

// Push retries TryPush until it succeeds or ctx is done. This is the
// back-pressure policy §4.3 requires: the producer never silently
// drops an event, it yields and retries. Push may be called
// concurrently from any number of goroutines — pushMu serializes them
// so the underlying ring only ever sees one TryPush in flight, as its
// single-producer contract requires.
func (p *Pipeline) Push(ctx context.Context, ev *domain.Event) error {
	p.pushMu.Lock()
	defer p.pushMu.Unlock()

	for {
		if p.loop.queue.TryPush(ev) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			runtime.Gosched()
		}
	}
}

// Query runs fn on the event loop's consumer goroutine and blocks until
// it completes. Use it for read-only access to the matching engine's
// books from another goroutine (e.g. an HTTP handler) instead of
// reaching into them directly.
func (p *Pipeline) Query(fn func()) {
	p.loop.RunQuery(fn)
}

// Shutdown runs the cooperative shutdown protocol of §4.3: the caller
// must have already stopped calling Push before invoking this. It
// spins until the queue is observed empty, requests shutdown, and
// blocks until the consumer has exited (the join).
func (p *Pipeline) Shutdown() {
	for !p.loop.queue.Empty() {
		runtime.Gosched()
	}
	p.loop.RequestShutdown()
	<-p.loop.Done()
	telemetry.ShutdownDrains.Inc()
}
