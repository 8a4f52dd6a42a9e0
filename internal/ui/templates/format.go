package templates

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DateLayout = "2006-01-02"

var moneyPrinter = message.NewPrinter(language.English)

// Money formats an amount as $1,234.56.
func Money(v float64) string {
	if v < 0 {
		return moneyPrinter.Sprintf("-$%.2f", -v)
	}
	return moneyPrinter.Sprintf("$%.2f", v)
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
