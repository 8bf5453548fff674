// Package chat is the pool assistant: a fixed keyword table answering common
// lending questions, optionally grounded in the figures of the pool on screen.
package chat

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/defistate/lending-console-go/estimate"
	"github.com/defistate/lending-console-go/format"
)

// Match describes how a reply was chosen.
type Match string

const (
	MatchKeyword  Match = "keyword"
	MatchContext  Match = "context"
	MatchFallback Match = "fallback"
)

// Entry is one row of the answer table. Keyword must already be normalized.
type Entry struct {
	Keyword string
	Answer  string
}

// DefaultEntries is scanned in order; the first keyword contained in the
// question wins.
var DefaultEntries = []Entry{
	{
		Keyword: "what is a lending pool",
		Answer:  "A lending pool is a smart contract that allows users to lend and borrow cryptocurrencies. When you supply assets to the pool, you earn interest from borrowers. The pool automatically manages interest rates based on supply and demand.",
	},
	{
		Keyword: "how do i calculate my apy",
		Answer:  "Your APY (Annual Percentage Yield) is calculated based on the current supply rate and compound interest. For example, if the current supply rate is 5% and interest compounds continuously, your effective APY would be approximately 5.13%. You can see your real-time APY in the dashboard.",
	},
	{
		Keyword: "what are the risks of lending",
		Answer:  "Main risks include: 1) Smart contract risk - bugs in the protocol, 2) Liquidation risk - if collateral value drops, 3) Interest rate risk - rates can fluctuate, 4) Platform risk - protocol governance changes. Always do your research and only invest what you can afford to lose.",
	},
	{
		Keyword: "how much can i borrow",
		Answer:  "Your borrowing capacity depends on: 1) Collateral value, 2) Collateral factor (typically 70-80%), 3) Health factor (must stay above 1.0). For example, with $1000 USDC collateral at 75% factor, you can borrow up to $750 worth of assets.",
	},
	{
		Keyword: "explain collateral ratio",
		Answer:  "Collateral ratio is the percentage of your loan value backed by collateral. A 150% ratio means you have $1.50 in collateral for every $1.00 borrowed. Higher ratios = lower liquidation risk. Most protocols require 100-150% minimum ratio.",
	},
	{
		Keyword: "what is liquidation",
		Answer:  "Liquidation occurs when your health factor drops below 1.0 (collateral value < loan value). The protocol automatically sells your collateral to repay the loan, often with a penalty. To avoid liquidation, maintain adequate collateral or repay loans when prices move against you.",
	},
}

// DefaultAnswer is returned when nothing else matches.
const DefaultAnswer = "I'm here to help you understand DeFi lending! I can explain concepts like APY, collateral ratios, liquidation risks, and help you make informed decisions about your positions. What would you like to know?"

// SuggestedQuestions are offered before the first question is asked.
var SuggestedQuestions = []string{
	"What is a lending pool?",
	"How do I calculate my APY?",
	"What are the risks of lending?",
	"How much can I borrow?",
	"Explain collateral ratio",
	"What is liquidation?",
}

// contextTriggers make an unmatched question about the pool on screen.
var contextTriggers = []string{"pool", "current"}

// Reply is a chosen answer.
type Reply struct {
	Text  string `json:"reply"`
	Match Match  `json:"match"`
	// Keyword is the table entry that matched, for MatchKeyword.
	Keyword string `json:"keyword,omitempty"`
}

// Responder picks answers. The zero value uses DefaultEntries.
type Responder struct {
	entries []Entry
}

// NewResponder creates a Responder over entries, or DefaultEntries when none
// are given. Keywords are normalized on the way in.
func NewResponder(entries ...Entry) *Responder {
	if len(entries) == 0 {
		entries = DefaultEntries
	}
	normalized := make([]Entry, len(entries))
	for i, e := range entries {
		normalized[i] = Entry{Keyword: Normalize(e.Keyword), Answer: e.Answer}
	}
	return &Responder{entries: normalized}
}

// Respond returns the reply text for question.
func (r *Responder) Respond(question string, pool *estimate.PoolSummary) string {
	return r.Reply(question, pool).Text
}

// Reply picks the answer for question. pool, when not nil, lets questions
// about "pool" or "current" figures be answered from live data.
func (r *Responder) Reply(question string, pool *estimate.PoolSummary) Reply {
	entries := r.entries
	if entries == nil {
		entries = DefaultEntries
	}

	q := Normalize(question)
	for _, e := range entries {
		if e.Keyword != "" && strings.Contains(q, e.Keyword) {
			return Reply{Text: e.Answer, Match: MatchKeyword, Keyword: e.Keyword}
		}
	}

	if pool != nil {
		for _, trigger := range contextTriggers {
			if strings.Contains(q, trigger) {
				return Reply{Text: ContextAnswer(*pool), Match: MatchContext}
			}
		}
	}
	return Reply{Text: DefaultAnswer, Match: MatchFallback}
}

// ContextAnswer describes a pool's supply, borrows and utilization.
func ContextAnswer(pool estimate.PoolSummary) string {
	name := pool.Name
	if name == "" {
		name = "Blend"
	}
	supply, borrowed, utilization := "N/A", "N/A", "N/A"
	if pool.TotalSupply > 0 {
		supply = format.ToMillions(pool.TotalSupply)
	}
	if pool.TotalBorrowed > 0 {
		borrowed = format.ToMillions(pool.TotalBorrowed)
	}
	if u, ok := pool.Utilization(); ok {
		utilization = fmt.Sprintf("%.1f", u*100)
	}
	return fmt.Sprintf(
		"You're looking at the %s pool. It currently has $%sM in total supply and $%sM borrowed. The utilization rate is %s%%. Would you like to know more about any specific aspect?",
		name, supply, borrowed, utilization,
	)
}

// Normalize case-folds s, drops punctuation and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}
