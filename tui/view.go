package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/defistate/lending-console-go/chat"
	"github.com/defistate/lending-console-go/format"
	"github.com/defistate/lending-console-go/markets"
	"github.com/defistate/lending-console-go/wizard"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.overlay {
	case overlayTransaction:
		body = m.viewTransaction()
	case overlayWelcome:
		body = m.viewWelcome()
	case overlayCompare:
		body = m.viewCompare()
	case overlayAssistant:
		body = m.viewAssistant()
	default:
		if m.page == pagePool {
			body = m.viewPool()
		} else {
			body = m.viewMarkets()
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Blend Lending") + dimStyle.Render(" · "+m.network.Name))
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(warnStyle.Render(m.status) + "\n")
	}
	b.WriteString(m.help.View(m.helpKeys()))
	return b.String()
}

func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// --- Market list ---

func (m Model) viewMarkets() string {
	list := m.sortedMarkets()
	totals := markets.Summarize(list)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Total TVL %s   Total Borrowed %s   Avg Utilization %s\n\n",
		cardValueStyle.Render(format.ToUSD(totals.TVL)),
		cardValueStyle.Render(format.ToUSD(totals.Borrowed)),
		cardValueStyle.Render(format.ToPercentage(totals.AvgUtilization)),
	))

	header := pad("Pool", 20) + pad("TVL", 12) + pad("Supply APY", 12) + pad("Borrow APY", 12) +
		pad("Util", 9) + pad("Backstop", 10) + pad("Risk", 13) + "Status"
	b.WriteString(headerStyle.Render(header) + "\n")

	for i, mk := range list {
		status := okStyle.Render("Active")
		if !mk.Active {
			status = dimStyle.Render("Inactive")
		}
		risk := mk.Risk()
		row := pad(mk.Name, 20) +
			pad(format.ToUSD(mk.TVL), 12) +
			pad(format.ToPercentage(mk.AvgSupplyApy), 12) +
			pad(format.ToPercentage(mk.AvgBorrowApy), 12) +
			pad(format.ToPercentage(mk.Utilization), 9) +
			pad(format.ToPercentage(mk.BackstopApr), 10) +
			pad(riskStyle(risk).Render(risk.String()), 13) +
			status
		if i == m.cursor {
			row = selectedStyle.Render(row)
		}
		b.WriteString(row + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("Sorted by "+string(m.sortKey)))
	return b.String()
}

// --- Pool page ---

func card(label, value string) string {
	return cardStyle.Render(cardLabelStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func (m Model) viewPool() string {
	var b strings.Builder
	name := m.poolID.Compact()
	if m.snap.Meta != nil {
		name = m.snap.Meta.Name + " " + dimStyle.Render(m.poolID.Compact())
	}
	b.WriteString(headerStyle.Render(" "+name+" ") + "\n\n")

	if m.poolErr != nil {
		b.WriteString(errorStyle.Render(poolErrorText(m.poolErr)) + "\n")
		return b.String()
	}
	if m.dashboard == nil {
		b.WriteString(m.spinner.View() + " Loading pool data...\n")
		for _, q := range m.snap.Pending() {
			b.WriteString(dimStyle.Render("  waiting for "+q) + "\n")
		}
		return b.String()
	}

	d := m.dashboard
	util := format.Placeholder
	if d.Utilization != nil {
		util = format.ToPercentage(*d.Utilization)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Supplied", format.ToUSD(d.Summary.TotalSupply)),
		card("Total Borrowed", format.ToUSD(d.Summary.TotalBorrowed)),
		card("Utilization", util),
	) + "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		card("Avg Supply APY", format.ToPercentage(d.Summary.AvgSupplyApy)),
		card("Avg Borrow APY", format.ToPercentage(d.Summary.AvgBorrowApy)),
		card("Backstop APR", format.ToPercentage(d.BackstopAPR)),
	) + "\n")
	b.WriteString(fmt.Sprintf("Backstop %s · %s tokens · %s queued for withdrawal\n\n",
		format.ToUSD(d.Backstop.TotalSpotValue),
		format.ToBalance(d.Backstop.Tokens),
		format.ToPercentage(d.Backstop.Q4WPercent),
	))

	if m.snap.Pool != nil {
		header := pad("Asset", 10) + pad("Supplied", 14) + pad("Borrowed", 14) +
			pad("Supply APY", 12) + pad("Borrow APY", 12) + "Collateral"
		b.WriteString(headerStyle.Render(header) + "\n")
		for _, r := range m.snap.Pool.Reserves {
			b.WriteString(pad(r.Symbol, 10) +
				pad(format.ToBalance(format.ToFloat(r.Supplied, r.Decimals)), 14) +
				pad(format.ToBalance(format.ToFloat(r.Borrowed, r.Decimals)), 14) +
				pad(format.ToPercentage(r.SupplyApy), 12) +
				pad(format.ToPercentage(r.BorrowApy), 12) +
				format.ToPercentage(r.CollateralFactor) + "\n")
		}
	}
	if !m.snap.FetchedAt.IsZero() {
		b.WriteString("\n" + dimStyle.Render("Updated "+m.snap.FetchedAt.Format("15:04:05")))
	}
	return b.String()
}

func poolErrorText(err error) string {
	if isNotFound(err) {
		return "Pool not found"
	}
	return "Failed to load pool: " + err.Error()
}

// --- Transaction overlay ---

func (m Model) viewTransaction() string {
	st := m.tx.State()
	kind := st.Draft.Kind

	var b strings.Builder
	b.WriteString(titleStyle.Render(wizard.Title(kind)) + "\n")
	for i, name := range st.Steps {
		label := fmt.Sprintf("%d. %s", i+1, name)
		switch {
		case i == st.Index:
			label = stepActiveStyle.Render(label)
		case i < st.Index:
			label = okStyle.Render(label)
		default:
			label = dimStyle.Render(label)
		}
		if i > 0 {
			b.WriteString(dimStyle.Render(" → "))
		}
		b.WriteString(label)
	}
	b.WriteString("\n\n")

	amount, amountErr := st.Draft.ParseAmount()
	switch st.Step() {
	case "Review":
		b.WriteString(m.amount.View() + "\n")
		b.WriteString(dimStyle.Render("Max: "+wizard.MaxAmount(kind).StringFixed(2)) + "\n\n")
		if amountErr == nil {
			label := "interest"
			if kind == wizard.KindSupply {
				label = "earnings"
			}
			b.WriteString(fmt.Sprintf("Est. annual %s: %s\n", label, wizard.AnnualInterest(amount, kind).StringFixed(2)))
			b.WriteString(fmt.Sprintf("Health factor after: %s\n", wizard.HealthFactor(amount, kind).StringFixed(2)))
		}
		b.WriteString(dimStyle.Render(wizard.Notice(kind)) + "\n")
		if st.Validation != "" {
			b.WriteString(errorStyle.Render(st.Validation) + "\n")
		}
		if st.Failure != nil {
			b.WriteString(errorStyle.Render("Transaction failed: "+st.Failure.Error()) + "\n")
		}
	case "Confirm":
		b.WriteString(fmt.Sprintf("Action:  %s\n", kind))
		b.WriteString(fmt.Sprintf("Amount:  %s\n", amount.StringFixed(2)))
		b.WriteString(fmt.Sprintf("Rate:    %s%%\n", wizard.Rate(kind).Shift(2).StringFixed(2)))
		b.WriteString(fmt.Sprintf("Health:  %s\n\n", wizard.HealthFactor(amount, kind).StringFixed(2)))
		b.WriteString(warnStyle.Render(wizard.ConfirmWarning) + "\n")
	case "Processing":
		b.WriteString(m.spinner.View() + " Processing transaction...\n")
	default:
		b.WriteString(okStyle.Render("Transaction submitted") + "\n")
		if st.Receipt != nil {
			b.WriteString(fmt.Sprintf("Hash: %s\n", format.ToCompactAddress(st.Receipt.Hash)))
			b.WriteString(dimStyle.Render(wizard.ExplorerURL(m.network.Name, st.Receipt.Hash)) + "\n")
		}
	}
	return modalStyle.Render(b.String())
}

// --- Welcome overlay ---

func (m Model) viewWelcome() string {
	st := m.tour.State()
	p := m.tour.Page()

	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Title) + "\n")
	b.WriteString(p.Content + "\n\n")
	switch st.Index {
	case 0:
		for _, f := range wizard.Features {
			b.WriteString(stepActiveStyle.Render(f.Title) + "  " + dimStyle.Render(f.Description) + "\n")
		}
	case 2:
		for _, tip := range wizard.SafetyTips {
			b.WriteString(warnStyle.Render("• ") + tip + "\n")
		}
	}

	dots := make([]string, len(st.Steps))
	for i := range st.Steps {
		if i == st.Index {
			dots[i] = stepActiveStyle.Render("●")
		} else {
			dots[i] = dimStyle.Render("○")
		}
	}
	b.WriteString("\n" + strings.Join(dots, " "))
	return modalStyle.Render(b.String())
}

// --- Compare overlay ---

func (m Model) viewCompare() string {
	results := m.compareResults()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Compare Pools") + "\n")
	b.WriteString(m.search.View() + "\n")
	if m.inactive {
		b.WriteString(dimStyle.Render("including inactive pools") + "\n")
	}
	b.WriteString("\n")

	if len(results) == 0 {
		b.WriteString(dimStyle.Render("No pools match") + "\n")
	}
	for i, mk := range results {
		mark := "[ ]"
		if m.selection.Contains(mk.ID) {
			mark = okStyle.Render("[x]")
		}
		row := mark + " " + pad(mk.Name, 20) + pad(format.ToUSD(mk.TVL), 12) + format.ToPercentage(mk.AvgSupplyApy)
		if i == m.compareCursor {
			row = selectedStyle.Render(row)
		}
		b.WriteString(row + "\n")
	}

	chosen := m.selection.Resolve(m.registry)
	b.WriteString(fmt.Sprintf("\n%d/%d selected\n", len(chosen), markets.MaxSelection))
	if len(chosen) == 0 {
		return modalStyle.Render(b.String())
	}

	rows := []struct {
		label string
		value func(markets.Market) string
	}{
		{"TVL", func(mk markets.Market) string { return format.ToUSD(mk.TVL) }},
		{"Supply APY", func(mk markets.Market) string { return format.ToPercentage(mk.AvgSupplyApy) }},
		{"Borrow APY", func(mk markets.Market) string { return format.ToPercentage(mk.AvgBorrowApy) }},
		{"Utilization", func(mk markets.Market) string { return format.ToPercentage(mk.Utilization) }},
		{"Backstop APR", func(mk markets.Market) string { return format.ToPercentage(mk.BackstopApr) }},
		{"Assets", func(mk markets.Market) string { return fmt.Sprint(mk.Assets) }},
		{"Risk", func(mk markets.Market) string { return mk.Risk().String() }},
	}
	header := pad("", 14)
	for _, mk := range chosen {
		header += pad(mk.Name, 18)
	}
	b.WriteString("\n" + headerStyle.Render(header) + "\n")
	for _, r := range rows {
		line := pad(r.label, 14)
		for _, mk := range chosen {
			line += pad(r.value(mk), 18)
		}
		b.WriteString(line + "\n")
	}
	return modalStyle.Width(max(64, 20+18*len(chosen))).Render(b.String())
}

// --- Assistant overlay ---

func (m Model) viewAssistant() string {
	var content strings.Builder
	msgs := m.session.Messages()
	for _, msg := range msgs {
		if msg.Author == chat.AuthorUser {
			content.WriteString(userRoleStyle.Render(" You ") + " " + msg.Text + "\n\n")
		} else {
			content.WriteString(assistantRoleStyle.Render(" Assistant ") + " " + msg.Text + "\n\n")
		}
	}
	if m.session.Typing() {
		content.WriteString(m.spinner.View() + dimStyle.Render(" typing...") + "\n")
	}

	view := m.chatView
	view.SetContent(lipgloss.NewStyle().Width(view.Width).Render(content.String()))
	view.GotoBottom()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Lending Assistant") + "\n")
	b.WriteString(view.View() + "\n")
	if !m.asked() {
		b.WriteString(dimStyle.Render("Suggested questions:") + "\n")
		for i, q := range chat.SuggestedQuestions {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %d. %s", i+1, q)) + "\n")
		}
	}
	b.WriteString(m.question.View())
	return modalStyle.Width(max(64, min(m.width-4, 84))).Render(b.String())
}
