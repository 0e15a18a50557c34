package vkloop

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
)

// Raw update builders used across tests.

// msgUpdate builds a raw new-message update.
func msgUpdate(id, flags, peer int64, text string) event.Update {
	raw := fmt.Sprintf(`[4, %d, %d, %d, 1700000000, %q, {}, {}]`, id, flags, peer, text)
	var u event.Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		panic(err)
	}
	return u
}

// typingUpdate builds a raw user-typing update.
func typingUpdate(userID int64) event.Update {
	raw := fmt.Sprintf(`[61, %d, 1]`, userID)
	var u event.Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		panic(err)
	}
	return u
}

// fakePoller serves scripted batches, then blocks until cancellation
// (or fails with pollErr when set). started is closed on the first
// Poll so tests can synchronize with a running loop.
type fakePoller struct {
	acquireErr error
	pollErr    error
	batches    [][]event.Update

	mu       sync.Mutex
	acquires int
	polls    int

	started   chan struct{}
	startOnce sync.Once
}

func newFakePoller(batches ...[]event.Update) *fakePoller {
	return &fakePoller{
		batches: batches,
		started: make(chan struct{}),
	}
}

func (p *fakePoller) Acquire(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquires++
	return p.acquireErr
}

func (p *fakePoller) Poll(ctx context.Context) ([]event.Update, error) {
	p.startOnce.Do(func() { close(p.started) })

	p.mu.Lock()
	p.polls++
	if len(p.batches) > 0 {
		b := p.batches[0]
		p.batches = p.batches[1:]
		p.mu.Unlock()
		return b, nil
	}
	err := p.pollErr
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// recorder is a middleware that records hook invocations.
type recorder struct {
	BaseMiddleware

	name string
	log  *[]string
	mu   *sync.Mutex

	preOutcome Outcome
	preErr     error

	results []*HandlerResult
}

func newRecorder(name string, log *[]string, mu *sync.Mutex) *recorder {
	return &recorder{name: name, log: log, mu: mu}
}

func (r *recorder) PreProcess(_ context.Context, _ event.Event, data event.Data) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, r.name+".pre")
	return r.preOutcome, r.preErr
}

func (r *recorder) PostProcess(_ context.Context, _ event.Event, _ event.Data, res *HandlerResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, r.name+".post")
	r.results = append(r.results, res)
	return nil
}

// noopHandler ignores every event.
func noopHandler(context.Context, event.Event, event.Data) error {
	return nil
}
