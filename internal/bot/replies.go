package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finsheet/internal/core"
	"finsheet/internal/layout"
)

const (
	CallbackCurrency = "currency:"
	CallbackCategory = "category:"
)

const (
	msgWelcome = "Welcome! I keep your finance ledger in a spreadsheet.\n\n" + msgHelp
	msgHelp    = "Commands:\n" +
		"/add - record a transaction\n" +
		"/init - set opening balances for this month\n" +
		"/balance [currency] - balances, expenses and income\n" +
		"/history [currency] - last transactions\n" +
		"/categories [currency] - totals per category\n" +
		"/clear - cancel the current entry"

	msgChooseCurrency = "Choose a currency:"
	msgChooseCategory = "Choose a category:"
	msgEnterAmount    = "Send the amount, optionally followed by a description (e.g. 12,50 lunch)."
	msgEnterInit      = "Send opening balances as three numbers: USD EUR RUB (e.g. 100 50,5 0)."
	msgBadAmount      = "That is not a valid amount. Send a positive number, optionally followed by a description."
	msgBadInit        = "Send exactly three numbers: USD EUR RUB."
	msgNoSession      = "No active session. Use /add to record a transaction."
	msgRestart        = "This entry is incomplete. Start again with /add."
	msgCleared        = "Session cleared."
	msgUnknownCommand = "Unknown command. See /help."
	msgUnknownAction  = "Unknown action."
	msgBadCurrency    = "Unknown currency. Use usd, eur or rub."
	msgNotInitialized = "The ledger sheet is not set up for this month. Check the configuration or run /init."
	msgFailure        = "Could not reach the ledger. Please try again."
	msgNoTransactions = "No transactions yet."
)

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Reply is one outgoing chat message.
type Reply struct {
	Text     string
	Keyboard [][]Button
}

func text(s string) []Reply {
	return []Reply{{Text: s}}
}

func currencyKeyboard() [][]Button {
	row := make([]Button, 0, len(core.Currencies))
	for _, c := range core.Currencies {
		row = append(row, Button{Text: strings.ToUpper(string(c)), Data: CallbackCurrency + string(c)})
	}
	return [][]Button{row}
}

// categoryKeyboard lists spend categories, then income ones, three per row.
func categoryKeyboard(reg *layout.Registry) [][]Button {
	const perRow = 3
	var rows [][]Button
	for _, side := range [][]layout.Named{reg.Spend(), reg.Income()} {
		var row []Button
		for _, n := range side {
			label := n.Name
			if n.Style.Income {
				label = layout.IncomeMarker + " " + label
			}
			row = append(row, Button{Text: label, Data: CallbackCategory + n.Name})
			if len(row) == perRow {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

func formatAmount(d decimal.Decimal, c core.Currency) string {
	return fmt.Sprintf("%s %s", d.StringFixed(2), strings.ToUpper(string(c)))
}

func formatBalances(b map[core.Currency]core.CurrencyBalance) string {
	var sb strings.Builder
	sb.WriteString("Balances:")
	for _, c := range core.Currencies {
		v, ok := b[c]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "\n%s: %s (expenses %s, income %s)",
			strings.ToUpper(string(c)), v.Balance.StringFixed(2), v.Expenses.StringFixed(2), v.Income.StringFixed(2))
	}
	return sb.String()
}

func formatHistory(page core.HistoryPage) string {
	if len(page.Transactions) == 0 {
		return msgNoTransactions
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Last %d of %d transactions:", len(page.Transactions), page.TotalSize)
	for _, tx := range page.Transactions {
		var amounts []string
		for _, c := range core.Currencies {
			if v, ok := tx.Amount(c); ok {
				amounts = append(amounts, formatAmount(v, c))
			}
		}
		fmt.Fprintf(&sb, "\n%s  %s  %s", tx.Date, tx.Description, strings.Join(amounts, ", "))
	}
	return sb.String()
}

func formatCategories(cats []core.CategorySummary) string {
	var sb strings.Builder
	sb.WriteString("Categories:")
	for _, cs := range cats {
		var amounts []string
		for _, c := range core.Currencies {
			if v, ok := cs.Amounts[c]; ok && !v.IsZero() {
				amounts = append(amounts, formatAmount(v, c))
			}
		}
		if len(amounts) == 0 {
			amounts = []string{"0"}
		}
		fmt.Fprintf(&sb, "\n%s: %s", cs.Name, strings.Join(amounts, ", "))
	}
	return sb.String()
}

func formatReceipt(partition, description string, signed decimal.Decimal, c core.Currency) string {
	return fmt.Sprintf("Recorded %s: %s (%s)", description, formatAmount(signed, c), partition)
}
