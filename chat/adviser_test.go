package chat_test

import (
	"context"
	"sync"

	"github.com/agrosolve/agrosolve/pkg/advice"
)

type call struct {
	prompt string
	image  string
}

// scriptedAdviser answers with result. When gate is set it blocks until the
// gate is closed or the call is canceled.
type scriptedAdviser struct {
	mu     sync.Mutex
	calls  []call
	result advice.Result
	gate   chan struct{}

	started  chan struct{}
	canceled chan struct{}
}

func newScriptedAdviser(text string) *scriptedAdviser {
	return &scriptedAdviser{
		result:   advice.Result{Kind: advice.KindOK, Text: text},
		started:  make(chan struct{}, 8),
		canceled: make(chan struct{}, 8),
	}
}

func (a *scriptedAdviser) Advise(ctx context.Context, prompt, image string) advice.Result {
	a.mu.Lock()
	a.calls = append(a.calls, call{prompt: prompt, image: image})
	gate := a.gate
	result := a.result
	a.mu.Unlock()

	a.started <- struct{}{}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			a.canceled <- struct{}{}
			return advice.Result{Kind: advice.KindCanceled, Err: ctx.Err()}
		}
	}
	return result
}

func (a *scriptedAdviser) hold() chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate = make(chan struct{})
	return a.gate
}

func (a *scriptedAdviser) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *scriptedAdviser) unhold() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate = nil
}
