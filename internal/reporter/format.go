package reporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders numbers the way the report shows them: counts and
// currency with thousands separators, percentages with one decimal.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter creates a formatter for US English grouping
func NewFormatter() *Formatter {
	return &Formatter{printer: message.NewPrinter(language.English)}
}

// Count formats an integer with thousands separators
func (f *Formatter) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}

// Currency formats an amount as $1,234.56. The sign follows the dollar sign
// so negative amounts read $-1,234.56.
func (f *Formatter) Currency(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	whole, cents, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return "$" + sign + fixed
	}
	return "$" + sign + f.printer.Sprintf("%d", n) + "." + cents
}

// Percent formats a percentage with one decimal place
func (f *Formatter) Percent(p float64) string {
	return fmt.Sprintf("%.1f", p)
}
