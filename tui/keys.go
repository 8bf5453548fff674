package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Back    key.Binding
	Sort    key.Binding
	Compare key.Binding
	Quit    key.Binding

	Supply   key.Binding
	Withdraw key.Binding
	Borrow   key.Binding
	Repay    key.Binding
	Ask      key.Binding
	Refresh  key.Binding

	Confirm  key.Binding
	Max      key.Binding
	Cancel   key.Binding
	Toggle   key.Binding
	Inactive key.Binding
	Clear    key.Binding
	Skip     key.Binding
	Next     key.Binding
	Prev     key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open pool")),
	Back:    key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Sort:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "sort")),
	Compare: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "compare")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

	Supply:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "supply")),
	Withdraw: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "withdraw")),
	Borrow:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "borrow")),
	Repay:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repay")),
	Ask:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "assistant")),
	Refresh:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "refresh")),

	Confirm:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue")),
	Max:      key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "max")),
	Cancel:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "cancel")),
	Toggle:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Inactive: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "show inactive")),
	Clear:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
	Skip:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "skip")),
	Next:     key.NewBinding(key.WithKeys("enter", "right", "l"), key.WithHelp("enter", "next")),
	Prev:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "previous")),
}

// bindings implements help.KeyMap over a fixed list.
type bindings []key.Binding

func (b bindings) ShortHelp() []key.Binding { return b }

func (b bindings) FullHelp() [][]key.Binding { return [][]key.Binding{b} }

func (m Model) helpKeys() bindings {
	switch m.overlay {
	case overlayTransaction:
		back := keys.Back
		back.SetHelp("esc", "back")
		if m.tx.State().Index == 0 {
			return bindings{keys.Confirm, keys.Max, back, keys.Cancel}
		}
		return bindings{keys.Confirm, back, keys.Cancel}
	case overlayWelcome:
		return bindings{keys.Next, keys.Prev, keys.Skip}
	case overlayCompare:
		return bindings{keys.Up, keys.Down, keys.Toggle, keys.Inactive, keys.Back}
	case overlayAssistant:
		send := keys.Confirm
		send.SetHelp("enter", "send")
		return bindings{send, keys.Clear, keys.Back}
	}
	if m.page == pagePool {
		return bindings{keys.Supply, keys.Withdraw, keys.Borrow, keys.Repay, keys.Ask, keys.Refresh, keys.Back, keys.Quit}
	}
	return bindings{keys.Up, keys.Down, keys.Open, keys.Sort, keys.Compare, keys.Quit}
}
