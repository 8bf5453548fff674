// Package tui is the terminal dashboard: a market list, a live pool page and
// the transaction, welcome, compare and assistant overlays.
package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/defistate/lending-console-go/chat"
	"github.com/defistate/lending-console-go/estimate"
	"github.com/defistate/lending-console-go/markets"
	"github.com/defistate/lending-console-go/metrics"
	"github.com/defistate/lending-console-go/pkg/networks/stellar"
	"github.com/defistate/lending-console-go/prefs"
	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
	"github.com/defistate/lending-console-go/wizard"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Feed streams the snapshots of one pool. *poolfeed.Feed satisfies it.
type Feed interface {
	Snapshots() <-chan source.Snapshot
	Err() <-chan error
	Refresh()
}

// FeedFunc starts a Feed for id that runs until ctx is cancelled.
type FeedFunc func(ctx context.Context, id blend.PoolID) (Feed, error)

// Prefs remembers whether the welcome tour was shown. *prefs.Store
// satisfies it.
type Prefs interface {
	FirstVisit(ctx context.Context, key string) (bool, error)
}

// Config holds the configuration for the dashboard.
type Config struct {
	Logger   Logger
	Network  stellar.Network
	Markets  *markets.Registry
	OpenFeed FeedFunc

	Prefs       Prefs               // optional; nil never shows the welcome tour
	Process     wizard.ProcessFunc  // optional; defaults to the simulated process
	TypingDelay func() time.Duration // optional; assistant typing delay
	Metrics     *metrics.Metrics    // optional

	// Pool, when set, is opened on start.
	Pool blend.PoolID
}

func (c *Config) validate() error {
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Markets == nil {
		return errors.New("config: Markets is required")
	}
	if c.OpenFeed == nil {
		return errors.New("config: OpenFeed is required")
	}
	return nil
}

type page int

const (
	pageMarkets page = iota
	pagePool
)

type overlay int

const (
	overlayNone overlay = iota
	overlayTransaction
	overlayWelcome
	overlayCompare
	overlayAssistant
)

// --- Messages ---

type snapshotMsg struct {
	gen  int
	snap source.Snapshot
}

type feedErrMsg struct {
	gen int
	err error
}

type firstVisitMsg struct {
	id    blend.PoolID
	first bool
	err   error
}

type txDoneMsg struct{ err error }

type askDoneMsg struct{ err error }

// liveSummary hands the figures of the open pool to the assistant, which
// reads them from its own goroutine.
type liveSummary struct {
	mu sync.Mutex
	s  *estimate.PoolSummary
}

func (l *liveSummary) set(s *estimate.PoolSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.s = s
}

func (l *liveSummary) get() *estimate.PoolSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx      context.Context
	logger   Logger
	network  stellar.Network
	openFeed FeedFunc
	prefs    Prefs
	metrics  *metrics.Metrics
	initCmd  tea.Cmd

	width   int
	height  int
	page    page
	overlay overlay
	status  string

	// market list
	registry *markets.Registry
	sortKey  markets.SortKey
	cursor   int

	// pool page
	poolID    blend.PoolID
	snap      source.Snapshot
	dashboard *estimate.Dashboard
	poolErr   error
	feed      Feed
	feedGen   int
	stopFeed  context.CancelFunc
	live      *liveSummary

	// transaction
	tx     *wizard.Controller
	amount textinput.Model

	// welcome tour
	tour *wizard.Onboarding

	// compare
	search        textinput.Model
	inactive      bool
	selection     markets.Selection
	compareCursor int

	// assistant
	session  *chat.Session
	question textinput.Model
	chatView viewport.Model

	// Commands in flight; both keep the spinner alive.
	advancing bool
	asking    int

	spinner  spinner.Model
	help     help.Model
	quitting bool
}

// New builds the dashboard. When cfg.Pool is set its feed is started right
// away; ctx bounds every feed and background operation.
func New(ctx context.Context, cfg Config) (Model, error) {
	if err := cfg.validate(); err != nil {
		return Model{}, err
	}
	if cfg.Network.Name == "" {
		cfg.Network = stellar.Mainnet
	}

	tx, err := wizard.New(wizard.Config{
		Flow:    wizard.FlowTransaction,
		Steps:   wizard.TransactionSteps(),
		Process: cfg.Process,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return Model{}, err
	}

	live := &liveSummary{}
	session, err := chat.NewSession(chat.SessionConfig{
		Logger:   cfg.Logger,
		Pool:     live.get,
		Delay:    cfg.TypingDelay,
		Greeting: chat.Greeting,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return Model{}, err
	}

	amount := textinput.New()
	amount.Placeholder = "0.00"
	amount.CharLimit = 32
	amount.Prompt = "Amount: "

	search := textinput.New()
	search.Placeholder = "search pools..."
	search.CharLimit = 64
	search.Prompt = "/ "

	question := textinput.New()
	question.Placeholder = "Ask about lending, APY, risks..."
	question.CharLimit = 256
	question.Prompt = "│ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:      ctx,
		logger:   cfg.Logger,
		network:  cfg.Network,
		openFeed: cfg.OpenFeed,
		prefs:    cfg.Prefs,
		metrics:  cfg.Metrics,
		width:    100,
		height:   30,
		registry: cfg.Markets,
		sortKey:  markets.SortTVL,
		live:     live,
		tx:       tx,
		amount:   amount,
		search:   search,
		session:  session,
		question: question,
		chatView: viewport.New(60, 12),
		spinner:  sp,
		help:     help.New(),
	}

	if cfg.Pool != "" {
		var cmd tea.Cmd
		m, cmd = m.openPool(cfg.Pool)
		m.initCmd = cmd
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return m.initCmd
}

// Close stops the open feed and aborts any in-flight transaction.
func (m Model) Close() {
	if m.stopFeed != nil {
		m.stopFeed()
	}
	m.tx.Close()
	if m.tour != nil {
		m.tour.Close()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.chatView.Width = max(min(msg.Width-12, 76), 56)
		m.chatView.Height = max(msg.Height-18, 6)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if !m.busy() {
			return m, nil
		}
		return m, cmd

	case snapshotMsg:
		return m.onSnapshot(msg)

	case feedErrMsg:
		if msg.gen != m.feedGen || msg.err == nil {
			return m, nil
		}
		m.poolErr = msg.err
		m.logger.Error("Pool feed stopped", "pool", m.poolID, "error", msg.err)
		return m, nil

	case firstVisitMsg:
		return m.onFirstVisit(msg)

	case txDoneMsg:
		m.advancing = false
		var verr *wizard.ValidationError
		switch {
		case msg.err == nil, errors.Is(msg.err, wizard.ErrAborted), errors.As(msg.err, &verr):
		default:
			m.logger.Warn("Transaction failed", "pool", m.poolID, "error", msg.err)
		}
		return m, nil

	case askDoneMsg:
		m.asking--
		if msg.err != nil && !errors.Is(msg.err, chat.ErrCleared) {
			m.logger.Warn("Assistant reply failed", "error", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		m.status = ""
		switch m.overlay {
		case overlayTransaction:
			return m.updateTransaction(msg)
		case overlayWelcome:
			return m.updateWelcome(msg)
		case overlayCompare:
			return m.updateCompare(msg)
		case overlayAssistant:
			return m.updateAssistant(msg)
		}
		if m.page == pagePool {
			return m.updatePool(msg)
		}
		return m.updateMarkets(msg)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.Close()
	m.quitting = true
	return m, tea.Quit
}

// busy reports whether something on screen is waiting, which keeps the
// spinner ticking.
func (m Model) busy() bool {
	if m.advancing || m.asking > 0 {
		return true
	}
	if m.page == pagePool && m.dashboard == nil && m.poolErr == nil {
		return true
	}
	return m.tx.State().Suspended || m.session.Typing()
}

// --- Market list ---

func (m Model) sortedMarkets() []markets.Market {
	return markets.Sort(m.registry.All(), m.sortKey)
}

func (m Model) updateMarkets(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := m.sortedMarkets()
	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(list)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Sort):
		m.sortKey = nextSortKey(m.sortKey)
	case key.Matches(msg, keys.Open):
		if len(list) > 0 {
			return m.openPool(list[m.cursor].ID)
		}
	case key.Matches(msg, keys.Compare):
		m.search.Reset()
		m.search.Focus()
		m.inactive = false
		m.compareCursor = 0
		m.overlay = overlayCompare
	}
	return m, nil
}

func nextSortKey(k markets.SortKey) markets.SortKey {
	for i, cur := range markets.SortKeys {
		if cur == k {
			return markets.SortKeys[(i+1)%len(markets.SortKeys)]
		}
	}
	return markets.SortTVL
}

// --- Pool page ---

func (m Model) openPool(id blend.PoolID) (Model, tea.Cmd) {
	if m.stopFeed != nil {
		m.stopFeed()
	}
	m.feedGen++
	m.page = pagePool
	m.overlay = overlayNone
	m.poolID = id
	m.snap = source.Snapshot{PoolID: id}
	m.dashboard = nil
	m.poolErr = nil
	m.live.set(nil)
	m.session.Clear()

	ctx, cancel := context.WithCancel(m.ctx)
	feed, err := m.openFeed(ctx, id)
	if err != nil {
		cancel()
		m.stopFeed = nil
		m.feed = nil
		m.poolErr = err
		m.logger.Error("Failed to open pool feed", "pool", id, "error", err)
		return m, nil
	}
	m.feed = feed
	m.stopFeed = cancel
	m.logger.Info("Opened pool", "pool", id)

	return m, tea.Batch(waitForFeed(m.feedGen, feed), m.firstVisitCmd(id), m.spinner.Tick)
}

func (m Model) closePool() Model {
	if m.stopFeed != nil {
		m.stopFeed()
		m.stopFeed = nil
	}
	m.feed = nil
	m.feedGen++
	m.page = pageMarkets
	m.overlay = overlayNone
	m.live.set(nil)
	return m
}

func isNotFound(err error) bool {
	return errors.Is(err, source.ErrNotFound)
}

func waitForFeed(gen int, f Feed) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-f.Snapshots()
		if ok {
			return snapshotMsg{gen: gen, snap: snap}
		}
		err := <-f.Err()
		return feedErrMsg{gen: gen, err: err}
	}
}

func (m Model) onSnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.feedGen {
		return m, nil
	}
	m.snap = msg.snap
	if d, ok := estimate.FromSnapshot(msg.snap); ok {
		m.dashboard = &d
		summary := d.Summary
		m.live.set(&summary)
		if mk, ok := m.registry.Get(m.poolID); ok {
			m.registry = m.registry.Update(mk.WithDashboard(d))
		}
	}
	return m, waitForFeed(msg.gen, m.feed)
}

func (m Model) firstVisitCmd(id blend.PoolID) tea.Cmd {
	if m.prefs == nil {
		return nil
	}
	ctx, store := m.ctx, m.prefs
	return func() tea.Msg {
		first, err := store.FirstVisit(ctx, prefs.VisitedKey)
		return firstVisitMsg{id: id, first: first, err: err}
	}
}

func (m Model) onFirstVisit(msg firstVisitMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("Failed to read visit flag", "error", msg.err)
		return m, nil
	}
	if !msg.first || msg.id != m.poolID || m.page != pagePool || m.overlay != overlayNone {
		return m, nil
	}
	tour, err := wizard.NewOnboarding(wizard.OnboardingConfig{Logger: m.logger, Metrics: m.metrics})
	if err != nil {
		m.logger.Error("Failed to start onboarding", "error", err)
		return m, nil
	}
	m.tour = tour
	m.overlay = overlayWelcome
	return m, nil
}

func (m Model) updatePool(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()
	case key.Matches(msg, keys.Back):
		return m.closePool(), nil
	case key.Matches(msg, keys.Refresh):
		if m.feed != nil {
			m.feed.Refresh()
		}
	case key.Matches(msg, keys.Supply):
		return m.openTransaction(wizard.KindSupply)
	case key.Matches(msg, keys.Withdraw):
		return m.openTransaction(wizard.KindWithdraw)
	case key.Matches(msg, keys.Borrow):
		return m.openTransaction(wizard.KindBorrow)
	case key.Matches(msg, keys.Repay):
		return m.openTransaction(wizard.KindRepay)
	case key.Matches(msg, keys.Ask):
		m.question.Reset()
		m.question.Focus()
		m.overlay = overlayAssistant
	}
	return m, nil
}

// --- Transaction overlay ---

func (m Model) openTransaction(kind wizard.Kind) (tea.Model, tea.Cmd) {
	if m.dashboard == nil {
		m.status = "Pool data is still loading"
		return m, nil
	}
	m.tx.Start(kind)
	m.amount.Reset()
	m.amount.Focus()
	m.overlay = overlayTransaction
	return m, nil
}

func (m Model) updateTransaction(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.tx.State()
	if st.Suspended || m.advancing {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Confirm):
		if st.Terminal() {
			m.tx.Close()
			m.overlay = overlayNone
			return m, nil
		}
		ctx, tx := m.ctx, m.tx
		advance := func() tea.Msg { return txDoneMsg{err: tx.Advance(ctx)} }
		m.advancing = true
		return m, tea.Batch(advance, m.spinner.Tick)

	case key.Matches(msg, keys.Cancel):
		_ = m.tx.Cancel()
		m.overlay = overlayNone
		return m, nil

	case key.Matches(msg, keys.Max) && st.Index == 0:
		m.amount.SetValue(wizard.MaxAmount(st.Draft.Kind).String())
		m.amount.CursorEnd()
		_ = m.tx.SetAmount(m.amount.Value())
		return m, nil

	case msg.String() == "esc":
		if st.Index == 0 || st.Terminal() {
			m.tx.Close()
			m.overlay = overlayNone
			return m, nil
		}
		_ = m.tx.Back()
		return m, nil
	}

	if st.Index != 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.amount, cmd = m.amount.Update(msg)
	_ = m.tx.SetAmount(m.amount.Value())
	return m, cmd
}

// --- Welcome overlay ---

func (m Model) updateWelcome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Skip):
		m.tour.Skip()
		m.overlay = overlayNone
	case key.Matches(msg, keys.Prev):
		_ = m.tour.Back()
	case key.Matches(msg, keys.Next):
		done, err := m.tour.Next(m.ctx)
		if err != nil {
			m.logger.Warn("Onboarding step failed", "error", err)
		}
		if done {
			m.overlay = overlayNone
		}
	}
	return m, nil
}

// --- Compare overlay ---

func (m Model) compareResults() []markets.Market {
	return m.registry.Search(m.search.Value(), m.inactive)
}

func (m Model) updateCompare(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	results := m.compareResults()
	switch {
	case msg.String() == "esc":
		m.search.Blur()
		m.overlay = overlayNone
		return m, nil
	case key.Matches(msg, keys.Inactive):
		m.inactive = !m.inactive
		m.compareCursor = 0
		return m, nil
	case msg.String() == "up":
		if m.compareCursor > 0 {
			m.compareCursor--
		}
		return m, nil
	case msg.String() == "down":
		if m.compareCursor < len(results)-1 {
			m.compareCursor++
		}
		return m, nil
	case key.Matches(msg, keys.Toggle):
		if len(results) == 0 {
			return m, nil
		}
		if _, err := m.selection.Toggle(results[m.compareCursor].ID); errors.Is(err, markets.ErrSelectionFull) {
			m.status = "You can compare up to 3 pools"
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.compareCursor = min(m.compareCursor, max(len(m.compareResults())-1, 0))
	return m, cmd
}

// --- Assistant overlay ---

func (m Model) updateAssistant(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		m.question.Blur()
		m.overlay = overlayNone
		return m, nil
	case key.Matches(msg, keys.Clear):
		m.session.Clear()
		return m, nil
	case msg.String() == "enter":
		q := m.question.Value()
		if chat.Normalize(q) == "" {
			return m, nil
		}
		m.question.Reset()
		m.asking++
		return m, tea.Batch(m.askCmd(q), m.spinner.Tick)
	}

	if m.question.Value() == "" && !m.asked() && msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
		if i := int(msg.Runes[0] - '1'); i >= 0 && i < len(chat.SuggestedQuestions) {
			m.asking++
			return m, tea.Batch(m.askCmd(chat.SuggestedQuestions[i]), m.spinner.Tick)
		}
	}

	var cmd tea.Cmd
	m.question, cmd = m.question.Update(msg)
	return m, cmd
}

func (m Model) askCmd(q string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		_, err := session.Ask(ctx, q)
		return askDoneMsg{err: err}
	}
}

// asked reports whether the conversation has a user message.
func (m Model) asked() bool {
	for _, msg := range m.session.Messages() {
		if msg.Author == chat.AuthorUser {
			return true
		}
	}
	return false
}
