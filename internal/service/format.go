package service

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const vndSymbol = "\u00a0₫"

// FormatVND renders an amount the way the dashboard shows money: whole dong,
// dot-grouped, trailing symbol ("1.234.567 ₫").
func FormatVND(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	var n int64
	switch r := math.Round(amount); {
	case r >= math.MaxInt64:
		n = math.MaxInt64
	case r <= math.MinInt64:
		n = math.MinInt64
	default:
		n = int64(r)
	}
	p := message.NewPrinter(language.Vietnamese)
	return p.Sprintf("%d", n) + vndSymbol
}

// FormatCount groups a count with the same separators as FormatVND.
func FormatCount(n int) string {
	return message.NewPrinter(language.Vietnamese).Sprintf("%d", n)
}

// FormatPercent renders a signed month-over-month change such as "+12%".
func FormatPercent(pct int) string {
	if pct > 0 {
		return "+" + strconv.Itoa(pct) + "%"
	}
	return strconv.Itoa(pct) + "%"
}
