package wizard

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/defistate/lending-console-go/metrics"
)

// Flow names, used as the metrics and logging label.
const (
	FlowTransaction = "transaction"
	FlowOnboarding  = "onboarding"
)

// ProcessingDelay is how long the simulated transaction takes.
const ProcessingDelay = 3 * time.Second

// TransactionSteps is Review -> Confirm -> Processing -> Complete. Review
// requires a positive amount.
func TransactionSteps() []Step {
	return []Step{
		{Name: "Review", Validate: RequireAmount},
		{Name: "Confirm"},
		{Name: "Processing", Processing: true},
		{Name: "Complete"},
	}
}

// SimulatedProcess waits for delay and reports success with a made-up hash.
// It never fails unless ctx is cancelled first.
func SimulatedProcess(delay time.Duration) ProcessFunc {
	return func(ctx context.Context, _ Draft) (Receipt, error) {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return Receipt{}, ctx.Err()
			case <-timer.C:
			}
		}
		return Receipt{
			Hash:        strings.ReplaceAll(uuid.NewString(), "-", ""),
			CompletedAt: time.Now(),
		}, nil
	}
}

// ExplorerURL links a transaction hash on stellar.expert.
func ExplorerURL(network, hash string) string {
	if network == "" || network == "mainnet" {
		network = "public"
	}
	return "https://stellar.expert/explorer/" + network + "/tx/" + hash
}

// --- Onboarding ---

// Page is the content shown for one onboarding step.
type Page struct {
	Title   string
	Content string
}

var OnboardingPages = []Page{
	{Title: "Welcome to Blend", Content: "Start your DeFi lending journey with the most trusted protocol on Stellar"},
	{Title: "How It Works", Content: "Learn the basics of lending and borrowing in decentralized finance"},
	{Title: "Safety First", Content: "Understand risks and security measures to protect your assets"},
	{Title: "Get Started", Content: "Connect your wallet and make your first transaction"},
}

// Feature is a highlight listed on the first onboarding page.
type Feature struct {
	Title       string
	Description string
}

var Features = []Feature{
	{Title: "Earn Interest", Description: "Supply assets and earn competitive yields on your deposits"},
	{Title: "Borrow Assets", Description: "Access liquidity by borrowing against your collateral"},
	{Title: "Secure Protocol", Description: "Audited smart contracts and robust security measures"},
	{Title: "Community Driven", Description: "Decentralized governance and transparent operations"},
}

var SafetyTips = []string{
	"Always verify contract addresses before transactions",
	"Start with small amounts to test the protocol",
	"Monitor your health factor to avoid liquidation",
	"Keep some assets as buffer for market volatility",
}

// OnboardingSteps has one step per onboarding page and no validation.
func OnboardingSteps() []Step {
	steps := make([]Step, len(OnboardingPages))
	for i, p := range OnboardingPages {
		steps[i] = Step{Name: p.Title}
	}
	return steps
}

// OnboardingConfig holds the configuration for an Onboarding tour.
type OnboardingConfig struct {
	Logger  Logger
	Metrics *metrics.Metrics
	// OnComplete runs once, when the tour is finished or skipped.
	OnComplete func()
}

// Onboarding is the welcome tour. Next on the last page, or Skip from any
// page, completes it.
type Onboarding struct {
	*Controller

	done       atomic.Bool
	onComplete func()
}

// NewOnboarding creates the welcome tour.
func NewOnboarding(cfg OnboardingConfig) (*Onboarding, error) {
	c, err := New(Config{
		Flow:         FlowOnboarding,
		Steps:        OnboardingSteps(),
		BackFromLast: true,
		Logger:       cfg.Logger,
		Metrics:      cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	onComplete := cfg.OnComplete
	if onComplete == nil {
		onComplete = func() {}
	}
	return &Onboarding{Controller: c, onComplete: onComplete}, nil
}

// Page returns the content of the active step.
func (o *Onboarding) Page() Page {
	return OnboardingPages[o.State().Index]
}

// Next advances one page, completing the tour from the last one.
func (o *Onboarding) Next(ctx context.Context) (completed bool, err error) {
	if o.State().Terminal() {
		o.complete()
		return true, nil
	}
	return false, o.Advance(ctx)
}

// Skip completes the tour from any page.
func (o *Onboarding) Skip() {
	o.complete()
}

// Completed reports whether the tour has been finished or skipped.
func (o *Onboarding) Completed() bool {
	return o.done.Load()
}

func (o *Onboarding) complete() {
	if o.done.CompareAndSwap(false, true) {
		o.logger.Info("Onboarding completed")
		o.onComplete()
	}
	o.Close()
}
