package chat

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/defistate/lending-console-go/estimate"
	"github.com/defistate/lending-console-go/metrics"
)

var (
	ErrEmptyQuestion = errors.New("chat: question is empty")
	// ErrCleared is returned by an Ask whose exchange was dropped by Clear.
	ErrCleared = errors.New("chat: conversation cleared")
)

// Greeting opens a new conversation.
const Greeting = "Hi! I'm your DeFi lending assistant. I can help you understand how lending pools work, calculate your potential returns, and guide you through your first transaction. What would you like to know?"

// Typing delay bounds.
const (
	MinTypingDelay = 1 * time.Second
	MaxTypingDelay = 3 * time.Second
)

// Author of a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Message is an immutable entry of the conversation log.
type Message struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// RandomDelay returns a typing delay drawn uniformly from [lo, hi).
func RandomDelay(lo, hi time.Duration) func() time.Duration {
	return func() time.Duration {
		if hi <= lo {
			return lo
		}
		return lo + rand.N(hi-lo)
	}
}

// NoDelay replies immediately.
func NoDelay() time.Duration { return 0 }

// SessionConfig holds the configuration for a Session.
type SessionConfig struct {
	Logger    Logger
	Responder *Responder // defaults to NewResponder()
	// Pool returns the figures of the pool on screen at reply time; nil or a
	// nil result means no context.
	Pool func() *estimate.PoolSummary
	// Delay returns the typing delay of one reply; defaults to RandomDelay(1s, 3s).
	Delay func() time.Duration
	// Greeting, when set, is the first message of every conversation.
	Greeting string
	Metrics  *metrics.Metrics // optional
}

func (c *SessionConfig) validate() error {
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Session is one conversation. Exchanges are serialized: the reply to a
// question is in the log before the next question is.
type Session struct {
	responder *Responder
	pool      func() *estimate.PoolSummary
	delay     func() time.Duration
	greeting  string
	logger    Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	turn sync.Mutex // held for a whole exchange

	mu         sync.Mutex
	messages   []Message
	typing     bool
	epoch      uint64
	cancelTurn context.CancelFunc
}

// NewSession creates a Session, seeded with the greeting when configured.
func NewSession(cfg SessionConfig) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Session{
		responder: cfg.Responder,
		pool:      cfg.Pool,
		delay:     cfg.Delay,
		greeting:  cfg.Greeting,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		now:       time.Now,
	}
	if s.responder == nil {
		s.responder = NewResponder()
	}
	if s.pool == nil {
		s.pool = func() *estimate.PoolSummary { return nil }
	}
	if s.delay == nil {
		s.delay = RandomDelay(MinTypingDelay, MaxTypingDelay)
	}
	s.resetLocked()
	return s, nil
}

// Ask appends question to the log, waits the typing delay and appends the
// reply, which it also returns. Concurrent calls queue up in call order.
func (s *Session) Ask(ctx context.Context, question string) (Message, error) {
	if Normalize(question) == "" {
		return Message{}, ErrEmptyQuestion
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	epoch := s.epoch
	s.messages = append(s.messages, s.newMessage(AuthorUser, question))
	s.typing = true
	s.cancelTurn = cancel
	s.mu.Unlock()

	if err := s.wait(turnCtx); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch != epoch {
			return Message{}, ErrCleared
		}
		s.typing = false
		s.cancelTurn = nil
		return Message{}, err
	}

	reply := s.responder.Reply(question, s.pool())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return Message{}, ErrCleared
	}
	msg := s.newMessage(AuthorAssistant, reply.Text)
	s.messages = append(s.messages, msg)
	s.typing = false
	s.cancelTurn = nil

	s.metrics.AssistantReply(string(reply.Match))
	s.logger.Debug("Assistant replied", "match", reply.Match, "keyword", reply.Keyword)
	return msg, nil
}

// Messages returns a copy of the log in append order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Typing reports whether a reply is being composed.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// Clear resets the log to its initial state and drops the in-flight reply.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}
	s.resetLocked()
	s.logger.Debug("Conversation cleared")
}

func (s *Session) wait(ctx context.Context) error {
	d := s.delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Session) resetLocked() {
	s.messages = nil
	s.typing = false
	if s.greeting != "" {
		s.messages = append(s.messages, s.newMessage(AuthorAssistant, s.greeting))
	}
}

func (s *Session) newMessage(author Author, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		CreatedAt: s.now(),
	}
}
