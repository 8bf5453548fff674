package chat

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/defistate/lending-console-go/estimate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalize(t *testing.T) {
	testCases := map[string]string{
		"What is a Lending Pool?":         "what is a lending pool",
		"  how   much\tcan I borrow!!! ":  "how much can i borrow",
		"...":                             "",
		"Explain: collateral, ratio.":     "explain collateral ratio",
		"What's the current pool status?": "whats the current pool status",
	}
	for in, want := range testCases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestResponder_Reply(t *testing.T) {
	r := NewResponder()

	t.Run("KeywordIgnoresCaseAndPunctuation", func(t *testing.T) {
		for _, q := range []string{"What is a lending pool?", "WHAT IS A LENDING POOL", "what is a lending pool!!"} {
			reply := r.Reply(q, nil)
			assert.Equal(t, MatchKeyword, reply.Match, q)
			assert.Equal(t, DefaultEntries[0].Answer, reply.Text)
		}
	})

	t.Run("FirstEntryWins", func(t *testing.T) {
		reply := r.Reply("what is liquidation and what is a lending pool", nil)
		assert.Equal(t, DefaultEntries[0].Answer, reply.Text)
	})

	t.Run("UnknownQuestion", func(t *testing.T) {
		assert.Equal(t, DefaultAnswer, r.Respond("tell me a joke", nil))
	})

	t.Run("ContextReply", func(t *testing.T) {
		pool := &estimate.PoolSummary{TotalSupply: 5_000_000, TotalBorrowed: 3_000_000}
		reply := r.Reply("How is the current pool doing?", pool)

		assert.Equal(t, MatchContext, reply.Match)
		assert.Contains(t, reply.Text, "5.00")
		assert.Contains(t, reply.Text, "3.00")
		assert.Contains(t, reply.Text, "60.0")
		assert.Contains(t, reply.Text, "the Blend pool")
	})

	t.Run("ContextNeedsPool", func(t *testing.T) {
		reply := r.Reply("How is the current pool doing?", nil)
		assert.Equal(t, MatchFallback, reply.Match)
	})

	t.Run("ContextNeedsTrigger", func(t *testing.T) {
		reply := r.Reply("hello there", &estimate.PoolSummary{TotalSupply: 1})
		assert.Equal(t, MatchFallback, reply.Match)
	})

	t.Run("KeywordBeatsContext", func(t *testing.T) {
		reply := r.Reply("what is a lending pool", &estimate.PoolSummary{TotalSupply: 1})
		assert.Equal(t, MatchKeyword, reply.Match)
	})

	t.Run("CustomTable", func(t *testing.T) {
		custom := NewResponder(Entry{Keyword: "Backstop?", Answer: "insurance"})
		assert.Equal(t, "insurance", custom.Respond("what's the BACKSTOP for", nil))
		assert.Equal(t, DefaultAnswer, custom.Respond("what is a lending pool", nil))
	})

	t.Run("ZeroValueUsesDefaults", func(t *testing.T) {
		var zero Responder
		assert.Equal(t, DefaultEntries[5].Answer, zero.Respond("What is liquidation?", nil))
	})
}

func TestContextAnswer(t *testing.T) {
	t.Run("ZeroSupplyIsNA", func(t *testing.T) {
		text := ContextAnswer(estimate.PoolSummary{Name: "Beta"})
		assert.Equal(t, "You're looking at the Beta pool. It currently has $N/AM in total supply and $N/AM borrowed. The utilization rate is N/A%. Would you like to know more about any specific aspect?", text)
	})

	t.Run("NamedPool", func(t *testing.T) {
		text := ContextAnswer(estimate.PoolSummary{Name: "Stellar Core Pool", TotalSupply: 12_500_000, TotalBorrowed: 6_000_000})
		assert.Contains(t, text, "Stellar Core Pool pool")
		assert.Contains(t, text, "$12.50M")
		assert.Contains(t, text, "$6.00M")
		assert.Contains(t, text, "48.0%")
	})
}

func newSession(t *testing.T, cfg SessionConfig) *Session {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.Delay == nil {
		cfg.Delay = NoDelay
	}
	s, err := NewSession(cfg)
	require.NoError(t, err)
	return s
}

func TestSession_Ordering(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, SessionConfig{})

	_, err := s.Ask(ctx, "What is a lending pool?")
	require.NoError(t, err)
	_, err = s.Ask(ctx, "What is liquidation?")
	require.NoError(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, []Author{AuthorUser, AuthorAssistant, AuthorUser, AuthorAssistant},
		[]Author{msgs[0].Author, msgs[1].Author, msgs[2].Author, msgs[3].Author})
	assert.Equal(t, "What is a lending pool?", msgs[0].Text)
	assert.Equal(t, DefaultEntries[0].Answer, msgs[1].Text)
	assert.Equal(t, "What is liquidation?", msgs[2].Text)
	assert.Equal(t, DefaultEntries[5].Answer, msgs[3].Text)

	ids := map[string]bool{}
	for _, m := range msgs {
		ids[m.ID] = true
	}
	assert.Len(t, ids, 4, "ids are unique")
}

func TestSession_ConcurrentAsksAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, SessionConfig{Delay: func() time.Duration { return 2 * time.Millisecond }})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Ask(ctx, "how much can I borrow")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs := s.Messages()
	require.Len(t, msgs, 10)
	for i, m := range msgs {
		want := AuthorUser
		if i%2 == 1 {
			want = AuthorAssistant
		}
		assert.Equal(t, want, m.Author, "message %d", i)
	}
}

func TestSession_Greeting(t *testing.T) {
	s := newSession(t, SessionConfig{Greeting: Greeting})

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, AuthorAssistant, msgs[0].Author)

	_, err := s.Ask(context.Background(), "hi")
	require.NoError(t, err)
	assert.Len(t, s.Messages(), 3)

	s.Clear()
	msgs = s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Greeting, msgs[0].Text)
}

func TestSession_EmptyQuestion(t *testing.T) {
	s := newSession(t, SessionConfig{})
	for _, q := range []string{"", "   ", "?!"} {
		_, err := s.Ask(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	}
	assert.Empty(t, s.Messages())
}

func TestSession_UsesLivePool(t *testing.T) {
	var mu sync.Mutex
	summary := &estimate.PoolSummary{Name: "Stable Pool", TotalSupply: 2_000_000, TotalBorrowed: 1_000_000}
	s := newSession(t, SessionConfig{Pool: func() *estimate.PoolSummary {
		mu.Lock()
		defer mu.Unlock()
		return summary
	}})

	msg, err := s.Ask(context.Background(), "current pool?")
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "50.0%")

	mu.Lock()
	summary = &estimate.PoolSummary{Name: "Stable Pool", TotalSupply: 2_000_000, TotalBorrowed: 1_500_000}
	mu.Unlock()

	msg, err = s.Ask(context.Background(), "current pool?")
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "75.0%")
}

func TestSession_ClearDropsInFlightReply(t *testing.T) {
	s := newSession(t, SessionConfig{Delay: func() time.Duration { return time.Hour }})

	done := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), "What is liquidation?")
		done <- err
	}()
	require.Eventually(t, s.Typing, 2*time.Second, time.Millisecond)
	require.Len(t, s.Messages(), 1)

	s.Clear()
	assert.ErrorIs(t, <-done, ErrCleared)
	assert.Empty(t, s.Messages())
	assert.False(t, s.Typing())
}

func TestSession_ContextCancel(t *testing.T) {
	s := newSession(t, SessionConfig{Delay: func() time.Duration { return time.Hour }})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Ask(ctx, "What is liquidation?")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, s.Typing())
	assert.Len(t, s.Messages(), 1, "the question stays in the log")
}

func TestRandomDelay(t *testing.T) {
	d := RandomDelay(MinTypingDelay, MaxTypingDelay)
	for i := 0; i < 100; i++ {
		v := d()
		assert.GreaterOrEqual(t, v, MinTypingDelay)
		assert.Less(t, v, MaxTypingDelay)
	}
	assert.Equal(t, time.Second, RandomDelay(time.Second, time.Second)())
}
