package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/simonvc/fundcard/internal/fund"
)

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	snap := a.session.Snapshot()

	var content string
	if a.body != nil {
		content = a.body(snap)
	} else {
		content = a.cardView(snap)
	}

	status := ""
	if a.statusMsg != "" {
		status = successStyle.Render(a.statusMsg)
	}
	if a.err != nil {
		status = errorStyle.Render(a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		boxStyle.Render(content),
		statusBarStyle.Render(status),
		a.helpView(),
	)
}

func (a *App) cardView(snap fund.Snapshot) string {
	sections := []string{
		titleStyle.Render(a.header),
		a.amountView(snap),
		a.derivedView(snap),
	}
	if presets := a.presetsView(snap); presets != "" {
		sections = append(sections, "", presets)
	}
	sections = append(sections, "", a.paymentView(snap))
	if q := a.quoteView(snap); q != "" {
		sections = append(sections, "", q)
	}
	sections = append(sections, "", a.buttonView(snap))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *App) amountView(snap fund.Snapshot) string {
	return a.input.View() + " " + currencyStyle.Render(snap.CurrencyLabel())
}

// derivedView shows the amount in the other denomination.
func (a *App) derivedView(snap fund.Snapshot) string {
	switch {
	case snap.QuoteLoading:
		return dimStyle.Render("≈ …")
	case snap.InputType == fund.InputCrypto:
		return dimStyle.Render("≈ " + formatFiat(snap.Currency, snap.FundAmountFiat) + " " + snap.Currency)
	default:
		return dimStyle.Render("≈ " + formatCrypto(snap.Asset.Symbol, snap.FundAmountCrypto))
	}
}

func (a *App) presetsView(snap fund.Snapshot) string {
	if snap.PresetAmountInputs == nil {
		return ""
	}
	var parts []string
	for i, p := range snap.PresetAmountInputs {
		if p == "" {
			continue
		}
		parts = append(parts, dimStyle.Render(fmt.Sprintf("f%d", i+1))+" "+presetStyle.Render(formatFiat(snap.Currency, p)))
	}
	return strings.Join(parts, "  ")
}

func (a *App) paymentView(snap fund.Snapshot) string {
	lines := []string{subtitleStyle.Render("Payment method")}
	switch {
	case snap.OptionsLoading:
		lines = append(lines, dimStyle.Render("  Loading payment methods…"))
	case snap.OptionsErr != nil:
		lines = append(lines, errorStyle.Render("  Payment methods unavailable"))
	case len(snap.PaymentMethods) == 0:
		lines = append(lines, dimStyle.Render("  Choose in checkout"))
	}
	for _, pm := range snap.PaymentMethods {
		selected := snap.SelectedPaymentMethod != nil && snap.SelectedPaymentMethod.ID == pm.ID
		name := labelStyle.Render(pm.Name)
		desc := pm.Description
		if !pm.Allows(snap.FundAmountFiat) {
			desc = limitHint(snap.Currency, pm)
		}
		switch {
		case selected:
			lines = append(lines, selectedStyle.Render("> ")+name+dimStyle.Render(desc))
		case !pm.Allows(snap.FundAmountFiat):
			lines = append(lines, dimStyle.Render("  "+pm.Name+"  "+desc))
		default:
			lines = append(lines, "  "+name+dimStyle.Render(desc))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func limitHint(currency string, pm fund.PaymentMethod) string {
	if !pm.MaxAmount.IsZero() {
		return fmt.Sprintf("%s to %s", formatFiat(currency, pm.MinAmount.String()), formatFiat(currency, pm.MaxAmount.String()))
	}
	return "from " + formatFiat(currency, pm.MinAmount.String())
}

func (a *App) quoteView(snap fund.Snapshot) string {
	if snap.QuoteErr != nil {
		return errorStyle.Render("Quote unavailable")
	}
	q := snap.Quote
	if q == nil || q.PaymentTotal.IsZero() {
		return ""
	}
	total := formatFiat(snap.Currency, q.PaymentTotal.String())
	fees := formatFiat(snap.Currency, q.CoinbaseFee.String())
	network := formatFiat(snap.Currency, q.NetworkFee.String())
	return subtitleStyle.Render(fmt.Sprintf("Total %s · fees %s + %s network", total, fees, network))
}

func (a *App) buttonView(snap fund.Snapshot) string {
	label := fund.ButtonLabel(snap.SubmitState, a.button)
	switch snap.SubmitState {
	case fund.StateLoading:
		return buttonDisabledStyle.Render(a.spinner.View() + " " + label)
	case fund.StateSuccess:
		return buttonSuccessStyle.Render(label)
	case fund.StateError:
		return buttonErrorStyle.Render(label)
	}
	if !snap.CanSubmit() {
		return buttonDisabledStyle.Render(label)
	}
	return buttonStyle.Render(label)
}

func (a *App) helpView() string {
	var parts []string
	for _, b := range keys.help() {
		h := b.Help()
		parts = append(parts, h.Key+":"+h.Desc)
	}
	return dimStyle.Render(strings.Join(parts, "  "))
}
