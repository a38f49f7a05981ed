package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bimakw/wallet-watcher/internal/application/services"
	"github.com/bimakw/wallet-watcher/internal/domain/entities"
)

// markdownEscaper escapes every character Telegram's MarkdownV2 reserves
var markdownEscaper = func() *strings.Replacer {
	const reserved = "\\_*[]()~`>#+-=|{}.!"
	pairs := make([]string, 0, len(reserved)*2)
	for _, r := range reserved {
		pairs = append(pairs, string(r), "\\"+string(r))
	}
	return strings.NewReplacer(pairs...)
}()

// EscapeMarkdown escapes s for use in a MarkdownV2 message
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// FormatMessage renders n as a MarkdownV2 Telegram message
func FormatMessage(n entities.Notification, now time.Time) string {
	switch {
	case n.Kind == entities.NotificationTransfer && n.Transfer != nil:
		return formatTransfer(n, now)
	case n.Kind == entities.NotificationSwap && n.Swap != nil:
		return formatSwap(n, now)
	default:
		return formatGeneric(n, now)
	}
}

func formatTransfer(n entities.Notification, now time.Time) string {
	e := n.Transfer
	var b strings.Builder

	switch e.Kind {
	case entities.TransferNative:
		b.WriteString("💸 *SOL Transfer*\n\n")
		fmt.Fprintf(&b, "*From:* %s\n", EscapeMarkdown(n.Label(e.From)))
		fmt.Fprintf(&b, "*To:* %s\n", EscapeMarkdown(n.Label(e.To)))
		fmt.Fprintf(&b, "*Amount:* %s SOL\n", EscapeMarkdown(e.SOLAmount().StringFixed(4)))
	case entities.TransferToken:
		symbol := entities.UnknownTokenSymbol
		if e.Token != nil {
			symbol = e.Token.Symbol
		}
		b.WriteString("🪙 *Token Transfer*\n\n")
		fmt.Fprintf(&b, "*From:* %s\n", EscapeMarkdown(n.Label(e.From)))
		fmt.Fprintf(&b, "*To:* %s\n", EscapeMarkdown(n.Label(e.To)))
		fmt.Fprintf(&b, "*Amount:* %s %s\n", EscapeMarkdown(e.Amount.StringFixed(3)), EscapeMarkdown(symbol))
		if e.Mint != "" {
			fmt.Fprintf(&b, "*Mint:* `%s`\n", e.Mint)
		}
	case entities.TransferBatch:
		fmt.Fprintf(&b, "📦 *Batch Transfer* \\(%d\\)\n\n", len(e.Transfers))
		for _, leg := range e.Transfers {
			fmt.Fprintf(&b, "• %s %s: %s → %s\n",
				EscapeMarkdown(leg.Amount.StringFixed(3)),
				EscapeMarkdown(leg.Token.Symbol),
				EscapeMarkdown(n.Label(leg.From)),
				EscapeMarkdown(n.Label(leg.To)),
			)
		}
	}

	writeFooter(&b, e.Timestamp, n.Signature, now)
	return b.String()
}

func formatSwap(n entities.Notification, now time.Time) string {
	e := n.Swap
	sol := decimal.NewFromInt(e.NativeChange).Abs().Shift(-9)

	var b strings.Builder
	fmt.Fprintf(&b, "🔄 *Swap* by _%s_\n\n", EscapeMarkdown(n.Label(e.Wallet)))
	fmt.Fprintf(&b, "*Sold:* %s\n", swapSide(e.Sold, sol))
	fmt.Fprintf(&b, "*Bought:* %s\n", swapSide(e.Bought, sol))
	fmt.Fprintf(&b, "*DEX:* %s\n", EscapeMarkdown(e.DEX))
	if e.ContractAddress != "" {
		fmt.Fprintf(&b, "*CA:* `%s`\n", e.ContractAddress)
	}
	if e.TxURL != "" {
		fmt.Fprintf(&b, "[View on Solscan](%s)\n", escapeLink(e.TxURL))
	}

	writeFooter(&b, e.Timestamp, n.Signature, now)
	return b.String()
}

func swapSide(token *entities.SwapToken, sol decimal.Decimal) string {
	if token == nil {
		return EscapeMarkdown(sol.StringFixed(4)) + " SOL"
	}
	return EscapeMarkdown(token.Amount.StringFixed(3)) + " " + EscapeMarkdown(token.Symbol)
}

func formatGeneric(n entities.Notification, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 New *%s* Transaction in _%s_\n", EscapeMarkdown(n.TxType), EscapeMarkdown(n.Label(n.WalletAddress)))
	writeFooter(&b, n.Timestamp, n.Signature, now)
	return b.String()
}

func writeFooter(b *strings.Builder, ts int64, signature string, now time.Time) {
	fmt.Fprintf(b, "\n🕒 %s\n", EscapeMarkdown(services.FormatTimeAgo(now, ts)))
	if signature != "" {
		fmt.Fprintf(b, "🔗 `%s`", services.DisplaySignature(signature))
	}
}

// escapeLink escapes the characters MarkdownV2 reserves inside a link target
func escapeLink(url string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(url)
}
