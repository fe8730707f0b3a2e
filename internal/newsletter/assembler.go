package newsletter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrymomot/briefly/internal/coinmarketcap"
	"github.com/dmitrymomot/briefly/internal/weatherapi"
)

// Document is the assembled per-send markdown body together with the subject
// line it should be dispatched under.
type Document struct {
	Subject  string
	Markdown string
}

// AssembleInput carries everything the assembler needs. Fetched data is
// passed in, never fetched here, so assembly stays pure and testable.
type AssembleInput struct {
	Title          string
	Interval       Interval
	TimeOfDay      string
	Weather        *weatherapi.Summary
	Crypto         []coinmarketcap.Summary
	Quotes         []QuoteParams
	Order          []ComponentParam
	UnsubscribeURL string
}

// Assemble renders the newsletter as a markdown document: a header, one
// section per component kind ordered by the smallest position of that kind,
// and an unsubscribe footer. Kinds with no data are omitted without leaving
// gaps.
func Assemble(in AssembleInput) Document {
	var b strings.Builder

	b.WriteString("# 📧 " + in.Title + "\n\n")
	if in.TimeOfDay != "" || in.Interval != "" {
		b.WriteString(fmt.Sprintf("🕒 %s · 📅 %s\n\n", in.TimeOfDay, in.Interval))
	}
	b.WriteString("---\n\n")

	for _, kind := range sectionOrder(in.Order) {
		var section string
		switch kind {
		case KindWeather:
			section = weatherSection(in.Weather)
		case KindCrypto:
			section = cryptoSection(in.Crypto)
		case KindQuote:
			section = quoteSection(in.Quotes)
		}
		if section == "" {
			continue
		}
		b.WriteString(section)
		b.WriteString("\n---\n\n")
	}

	b.WriteString("You are receiving this email because you subscribed to this newsletter.\n\n")
	b.WriteString("[Unsubscribe](" + in.UnsubscribeURL + ")\n")

	return Document{Subject: in.Title, Markdown: b.String()}
}

// sectionOrder returns the distinct kinds present in params, ordered by each
// kind's smallest position, ascending.
func sectionOrder(params []ComponentParam) []Kind {
	first := map[Kind]int{}
	for _, p := range params {
		if pos, ok := first[p.Kind]; !ok || p.Position < pos {
			first[p.Kind] = p.Position
		}
	}

	kinds := make([]Kind, 0, len(first))
	for k := range first {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return first[kinds[i]] < first[kinds[j]] })
	return kinds
}

func weatherSection(w *weatherapi.Summary) string {
	if w == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("### ☀️ Weather Forecast\n\n")
	b.WriteString(fmt.Sprintf("**%s**\n\n", w.City))
	b.WriteString(fmt.Sprintf("%.1f°C, %s\n", w.TemperatureC, w.Condition))
	return b.String()
}

func cryptoSection(quotes []coinmarketcap.Summary) string {
	if len(quotes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("### 💰 Cryptocurrency Prices\n\n")
	for _, q := range quotes {
		b.WriteString(fmt.Sprintf("- **%s (%s)**: %.2f € (%+.2f%% 24h)\n", q.Name, q.Symbol, q.PriceEUR, q.PercentChange24h))
	}
	return b.String()
}

func quoteSection(quotes []QuoteParams) string {
	if len(quotes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("### 💬 Quote of the Day\n\n")
	for i, q := range quotes {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("> " + q.Text + "\n")
		if q.Author != "" {
			b.WriteString(">\n> — " + q.Author + "\n")
		}
	}
	return b.String()
}
