// Package chat holds the conversation state a chat front-end works with:
// an ordered list of turns, one message in flight at a time, and a clear
// operation that abandons whatever reply is still on its way.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrosolve/agrosolve/pkg/advice"
	"github.com/agrosolve/agrosolve/pkg/llm"
	"github.com/agrosolve/agrosolve/pkg/merkle"
)

const (
	// Greeting opens every new conversation.
	Greeting = "Hello! I'm AgroSolve AI. How can I help you with your farm or garden today? " +
		"You can ask me about crop management, pest control, or upload a photo of a plant for diagnosis."

	// ClearedGreeting opens a conversation that was cleared.
	ClearedGreeting = "Hello! I'm AgroSolve AI. How can I help you with your farm or garden today?"
)

var (
	ErrEmptyMessage = errors.New("message has neither text nor image")
	ErrBusy         = errors.New("a message is already waiting for a reply")
	ErrStale        = errors.New("conversation was cleared before the reply arrived")
	ErrClosed       = errors.New("session is closed")
)

// Adviser answers a single prompt. *advice.Adapter implements it.
type Adviser interface {
	Advise(ctx context.Context, prompt, image string) advice.Result
}

// Session is one conversation. It is safe for concurrent use.
type Session struct {
	id      string
	adviser Adviser
	logger  *zap.Logger

	mu         sync.Mutex
	storer     *merkle.MemoryStorer
	chain      *merkle.Chain
	epoch      uint64
	cancel     context.CancelFunc
	closed     bool
	lastActive time.Time
}

// NewSession starts a conversation holding only the greeting.
func NewSession(id string, adviser Adviser, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}

	storer := merkle.NewMemoryStorer()
	s := &Session{
		id:         id,
		adviser:    adviser,
		logger:     logger.With(zap.String("session", id)),
		storer:     storer,
		chain:      merkle.NewChain(storer),
		lastActive: time.Now(),
	}
	s.appendLocked(context.Background(), llm.ChatTurn{Speaker: llm.SpeakerAssistant, Text: Greeting})

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Send appends the user's message, waits for the adviser and appends its
// reply. Only one Send may be outstanding. If the session is cleared or
// closed while waiting, the reply is dropped and ErrStale is returned.
func (s *Session) Send(ctx context.Context, text, image string) (llm.ChatTurn, error) {
	if strings.TrimSpace(text) == "" && image == "" {
		return llm.ChatTurn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return llm.ChatTurn{}, ErrClosed
	}
	if s.cancel != nil {
		s.mu.Unlock()
		return llm.ChatTurn{}, ErrBusy
	}
	if _, err := s.appendLocked(ctx, llm.ChatTurn{Speaker: llm.SpeakerUser, Text: text, Image: image}); err != nil {
		s.mu.Unlock()
		return llm.ChatTurn{}, err
	}

	callCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	epoch := s.epoch
	s.mu.Unlock()

	result := s.adviser.Advise(callCtx, text, image)

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()

	if s.epoch != epoch {
		s.logger.Info("dropping reply for cleared conversation", zap.String("kind", string(result.Kind)))
		return llm.ChatTurn{}, ErrStale
	}
	s.cancel = nil

	return s.appendLocked(ctx, llm.ChatTurn{Speaker: llm.SpeakerAssistant, Text: advice.Present(result)})
}

// Clear abandons any reply in flight and restarts the conversation.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abandonLocked()
	s.chain.Reset()
	s.storer.Close()
	s.appendLocked(context.Background(), llm.ChatTurn{Speaker: llm.SpeakerAssistant, Text: ClearedGreeting})

	s.logger.Debug("conversation cleared")
}

// Close abandons any reply in flight and drops the transcript. Later sends
// fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abandonLocked()
	s.closed = true
	s.chain.Reset()
	s.storer.Close()
}

// Pending reports whether a message is waiting for its reply.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// LastActive returns when the session last changed.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Turns returns the conversation so far, oldest first.
func (s *Session) Turns(ctx context.Context) ([]llm.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnsLocked(ctx)
}

// Transcript returns a snapshot suitable for serialization.
func (s *Session) Transcript(ctx context.Context) (llm.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, err := s.turnsLocked(ctx)
	if err != nil {
		return llm.Transcript{}, err
	}

	t := llm.Transcript{
		SessionID: s.id,
		Turns:     turns,
		Pending:   s.cancel != nil,
	}
	if head := s.chain.Head(); head != nil {
		t.HeadHash = head.Hash
	}
	return t, nil
}

func (s *Session) abandonLocked() {
	s.epoch++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.lastActive = time.Now()
}

func (s *Session) appendLocked(ctx context.Context, turn llm.ChatTurn) (llm.ChatTurn, error) {
	turn.CreatedAt = time.Now().UTC()

	node, err := s.chain.Append(ctx, turn)
	if err != nil {
		return llm.ChatTurn{}, fmt.Errorf("appending %s turn: %w", turn.Speaker, err)
	}
	s.lastActive = turn.CreatedAt

	turn.Hash = node.Hash
	return turn, nil
}

func (s *Session) turnsLocked(ctx context.Context) ([]llm.ChatTurn, error) {
	nodes, err := s.chain.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	turns := make([]llm.ChatTurn, 0, len(nodes))
	for _, node := range nodes {
		turn, ok := node.Content.(llm.ChatTurn)
		if !ok {
			return nil, fmt.Errorf("node %s does not hold a turn", node.Hash)
		}
		turn.Hash = node.Hash
		turns = append(turns, turn)
	}
	return turns, nil
}
