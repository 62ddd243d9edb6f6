package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/petasbytes/chatmem/memory"
	"github.com/petasbytes/chatmem/session"
)

// ErrNoMockResponses is returned by a MockClient built without responses.
var ErrNoMockResponses = errors.New("mock: no responses configured")

// MockResponse is one scripted result. A non-nil Err is returned instead of
// Reply. When Block is set the call waits for its context to end and returns
// the context error.
type MockResponse struct {
	Reply session.Reply
	Err   error
	Block bool
}

// MockCall records one Send.
type MockCall struct {
	Seq    []memory.Entry
	Params session.GenerationParams
}

// MockClient is a scripted session.ModelClient for tests and offline runs.
// Responses are returned in order; once exhausted the last one repeats.
type MockClient struct {
	mu        sync.Mutex
	responses []MockResponse
	next      int
	calls     []MockCall
}

// NewMockClient returns a client that plays responses in order.
func NewMockClient(responses ...MockResponse) *MockClient {
	return &MockClient{responses: responses}
}

// Text is shorthand for a successful response with the given content.
func Text(content string) MockResponse {
	return MockResponse{Reply: session.Reply{Content: content, FinishReason: "stop", Model: "mock"}}
}

// Fail is shorthand for a failing response.
func Fail(err error) MockResponse { return MockResponse{Err: err} }

// Send implements session.ModelClient.
func (m *MockClient) Send(ctx context.Context, seq []memory.Entry, params session.GenerationParams) (session.Reply, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Seq: append([]memory.Entry(nil), seq...), Params: params})
	if len(m.responses) == 0 {
		m.mu.Unlock()
		return session.Reply{}, ErrNoMockResponses
	}
	idx := m.next
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	} else {
		m.next++
	}
	resp := m.responses[idx]
	m.mu.Unlock()

	if resp.Block {
		<-ctx.Done()
		return session.Reply{}, ctx.Err()
	}
	if resp.Err != nil {
		return session.Reply{}, resp.Err
	}
	return resp.Reply, nil
}

// Calls returns every Send made so far.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// Reset clears recorded calls and rewinds the script.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = 0
	m.calls = nil
}
