package call

import (
	"context"
	"sync"
	"time"
)

// TranscriptFetcher pulls the full transcript for one call.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, connectionID string) ([]string, error)
}

// Poller repeatedly fetches a call transcript on a fixed interval and hands
// each result to a sink. Cycles never overlap: the next fetch is not scheduled
// until the previous one has resolved.
type Poller struct {
	fetch    TranscriptFetcher
	interval time.Duration
}

func NewPoller(fetch TranscriptFetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{fetch: fetch, interval: interval}
}

// Handle cancels a running poll loop. Stop is idempotent. After Stop returns,
// neither the sink nor the error callback will be invoked again, even for a
// fetch that was in flight at cancellation time; the in-flight request itself
// is left to complete and its result discarded.
type Handle struct {
	mu      sync.Mutex
	stopped bool
	quit    chan struct{}
	done    chan struct{}
}

func (h *Handle) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	close(h.quit)
	h.mu.Unlock()
}

// Done is closed once the poll goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// deliver runs fn unless the handle was stopped first. Holding the lock while
// fn runs means a concurrent Stop either completes before the delivery or
// waits until it has finished, so Stop's no-further-invocations guarantee
// holds the moment it returns.
func (h *Handle) deliver(fn func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	fn()
	return true
}

// Start begins polling the transcript for connectionID. Each cycle fetches
// the complete transcript; on success sink receives the full replacement
// list, on failure onError is invoked and polling continues on schedule.
// Transient fetch failures never end the loop; only Stop (or ctx) does.
func (p *Poller) Start(ctx context.Context, connectionID string, sink func([]string), onError func(error)) *Handle {
	h := &Handle{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		timer := time.NewTimer(p.interval)
		defer timer.Stop()

		for {
			lines, err := p.fetch.FetchTranscript(ctx, connectionID)

			if err != nil {
				if !h.deliver(func() { onError(err) }) {
					return
				}
			} else {
				if !h.deliver(func() { sink(lines) }) {
					return
				}
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.interval)

			select {
			case <-h.quit:
				return
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
	}()

	return h
}
