package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"StockOverview/internal/model"
)

// FormatQuote renders the quote part of an overview payload plus the first
// headlines as a Telegram HTML message.
func FormatQuote(p *model.Payload) string {
	if p == nil || p.Quote == nil {
		return "No quote available."
	}
	q := p.Quote
	var b strings.Builder

	name := q.Symbol
	if q.CompanyName != "" {
		name = fmt.Sprintf("%s (%s)", q.CompanyName, q.Symbol)
	}
	b.WriteString(fmt.Sprintf("📈 <b>%s</b>\n\n", html.EscapeString(name)))

	b.WriteString(fmt.Sprintf("Price: %s", num(q.LatestPrice)))
	if q.Change != nil {
		b.WriteString(fmt.Sprintf(" | %+.2f", *q.Change))
		if q.ChangePercent != nil {
			b.WriteString(fmt.Sprintf(" (%+.2f%%)", *q.ChangePercent*100))
		}
	}
	b.WriteString("\n")
	if q.ExtendedChange != nil && *q.ExtendedChange != 0 {
		b.WriteString(fmt.Sprintf("Extended: %s | %+.2f\n", num(q.ExtendedPrice), *q.ExtendedChange))
	}
	if q.High != nil || q.Low != nil {
		b.WriteString(fmt.Sprintf("Range: %s - %s\n", num(q.Low), num(q.High)))
	}
	if q.Week52Low != nil || q.Week52High != nil {
		b.WriteString(fmt.Sprintf("52w: %s - %s\n", num(q.Week52Low), num(q.Week52High)))
	}
	if q.Date != nil {
		b.WriteString(fmt.Sprintf("Updated: %s\n", q.Date.Format("2006-01-02 15:04 MST")))
	}

	if len(p.News.Items) > 0 {
		b.WriteString("\n📰 <b>News</b>\n")
		for _, n := range p.News.Items {
			b.WriteString(fmt.Sprintf("• <a href=\"%s\">%s</a>", html.EscapeString(n.Link), html.EscapeString(n.Title)))
			if n.Source != "" {
				b.WriteString(" - " + html.EscapeString(n.Source))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FormatFailure renders a failed background job.
func FormatFailure(job, symbol string, err error, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("❌ <b>%s failed</b>", html.EscapeString(job)))
	if symbol != "" {
		b.WriteString(" | " + html.EscapeString(symbol))
	}
	b.WriteString("\n\n")
	b.WriteString(html.EscapeString(err.Error()))
	b.WriteString(fmt.Sprintf("\n\n%s", at.Format("2006-01-02 15:04:05")))
	return b.String()
}

// FormatStats renders the cache hit ratio of the last day.
func FormatStats(ratio float64, total int) string {
	if total == 0 {
		return "No bucket lookups in the last 24h."
	}
	return fmt.Sprintf("📦 <b>Cache</b> | last 24h\n\nLookups: %d\nServed from cache: %.1f%%", total, ratio*100)
}

// FormatHelp lists the commands the bot understands.
func FormatHelp() string {
	return "Commands:\n• /quote SYMBOL - latest quote and headlines\n• /watchlist - symbols kept warm\n• /stats - cache hit ratio\n• /help - this message"
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
