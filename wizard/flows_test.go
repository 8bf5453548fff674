package wizard

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Borrow ")
	require.NoError(t, err)
	assert.Equal(t, KindBorrow, k)

	_, err = ParseKind("stake")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDraft_ParseAmount(t *testing.T) {
	v, err := Draft{Amount: " 1234.5678 "}.ParseAmount()
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("1234.5678")))

	_, err = Draft{Amount: "1,000"}.ParseAmount()
	assert.ErrorContains(t, err, "valid number")
}

func TestEstimates(t *testing.T) {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	t.Run("MaxAmount", func(t *testing.T) {
		assert.Equal(t, "10000", MaxAmount(KindSupply).String())
		assert.Equal(t, "5000", MaxAmount(KindBorrow).String())
		assert.Equal(t, "7500", MaxAmount(KindWithdraw).String())
		assert.Equal(t, "7500", MaxAmount(KindRepay).String())
	})

	t.Run("AnnualInterest", func(t *testing.T) {
		assert.Equal(t, "5.00", AnnualInterest(d("100"), KindSupply).StringFixed(2))
		assert.Equal(t, "8.00", AnnualInterest(d("100"), KindRepay).StringFixed(2))
		assert.Equal(t, "0.99", AnnualInterest(d("12.345"), KindBorrow).StringFixed(2))
	})

	t.Run("HealthFactor", func(t *testing.T) {
		assert.Equal(t, "1.45", HealthFactor(decimal.Zero, KindSupply).StringFixed(2))
		assert.Equal(t, "1.46", HealthFactor(d("1000"), KindSupply).StringFixed(2))
		assert.Equal(t, "1.44", HealthFactor(d("1000"), KindBorrow).StringFixed(2))
		assert.Equal(t, "0.10", HealthFactor(d("1000000"), KindBorrow).StringFixed(2), "floored")
	})

	t.Run("Texts", func(t *testing.T) {
		for _, k := range Kinds {
			assert.NotEqual(t, "Transaction", Title(k))
			assert.NotEmpty(t, Notice(k))
		}
		assert.Equal(t, "Repay Loan", Title(KindRepay))
	})
}

func TestSimulatedProcess(t *testing.T) {
	r, err := SimulatedProcess(0)(context.Background(), Draft{})
	require.NoError(t, err)
	assert.Len(t, r.Hash, 32)
	assert.False(t, strings.Contains(r.Hash, "-"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = SimulatedProcess(ProcessingDelay)(ctx, Draft{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExplorerURL(t *testing.T) {
	assert.Equal(t, "https://stellar.expert/explorer/public/tx/ab", ExplorerURL("mainnet", "ab"))
	assert.Equal(t, "https://stellar.expert/explorer/testnet/tx/ab", ExplorerURL("testnet", "ab"))
}

func TestOnboarding(t *testing.T) {
	ctx := context.Background()

	t.Run("NextThroughEveryPage", func(t *testing.T) {
		completions := 0
		o, err := NewOnboarding(OnboardingConfig{Logger: discardLogger(), OnComplete: func() { completions++ }})
		require.NoError(t, err)

		var titles []string
		for {
			titles = append(titles, o.Page().Title)
			done, err := o.Next(ctx)
			require.NoError(t, err)
			if done {
				break
			}
		}

		assert.Equal(t, []string{"Welcome to Blend", "How It Works", "Safety First", "Get Started"}, titles)
		assert.Equal(t, 1, completions)
		assert.True(t, o.Completed())
		assert.Equal(t, 0, o.State().Index, "completion resets the tour")
	})

	t.Run("BackFromSecondPage", func(t *testing.T) {
		o, err := NewOnboarding(OnboardingConfig{Logger: discardLogger()})
		require.NoError(t, err)

		_, err = o.Next(ctx)
		require.NoError(t, err)
		require.NoError(t, o.Back())
		assert.Equal(t, "Welcome to Blend", o.Page().Title)
	})

	t.Run("BackFromLastPage", func(t *testing.T) {
		o, err := NewOnboarding(OnboardingConfig{Logger: discardLogger()})
		require.NoError(t, err)

		for !o.State().Terminal() {
			_, err = o.Next(ctx)
			require.NoError(t, err)
		}
		require.Equal(t, "Get Started", o.Page().Title)

		require.NoError(t, o.Back())
		assert.Equal(t, "Safety First", o.Page().Title)
		assert.False(t, o.Completed())
	})

	t.Run("SkipCompletesOnce", func(t *testing.T) {
		completions := 0
		o, err := NewOnboarding(OnboardingConfig{Logger: discardLogger(), OnComplete: func() { completions++ }})
		require.NoError(t, err)

		_, err = o.Next(ctx)
		require.NoError(t, err)
		o.Skip()
		o.Skip()

		assert.Equal(t, 1, completions)
		assert.True(t, o.Completed())
	})
}
