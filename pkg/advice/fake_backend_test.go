package advice_test

import (
	"context"
	"sync"

	"github.com/agrosolve/agrosolve/pkg/advice"
)

// fakeBackend records every request and answers with a canned response.
type fakeBackend struct {
	mu       sync.Mutex
	requests []*advice.Request

	resp    *advice.Response
	err     error
	panicky bool
}

func (f *fakeBackend) GenerateContent(ctx context.Context, req *advice.Request) (*advice.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.panicky {
		panic("backend exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeBackend) last() *advice.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}
