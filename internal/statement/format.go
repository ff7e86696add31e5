package statement

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders statement amounts for print. The currency symbol and
// company name are presentation settings only.
type Formatter struct {
	symbol  string
	company string
	printer *message.Printer
}

// NewFormatter builds a formatter. An empty or unparseable locale falls back
// to English digit grouping.
func NewFormatter(symbol, company, locale string) *Formatter {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	return &Formatter{symbol: symbol, company: company, printer: message.NewPrinter(tag)}
}

// Money formats an amount with the currency symbol, grouped thousands and two
// decimals, e.g. "-Rp1,234.50".
func (f *Formatter) Money(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()
	return fmt.Sprintf("%s%s%s%s%02d", sign, f.symbol, f.printer.Sprintf("%d", whole.IntPart()), f.decimalMark(), cents)
}

func (f *Formatter) decimalMark() string {
	// Read the localised separator back from a known value.
	s := f.printer.Sprintf("%.1f", 0.5)
	if len(s) == 3 {
		return s[1:2]
	}
	return "."
}

// Text renders a plain-text statement.
func (f *Formatter) Text(st Statement) string {
	var buf bytes.Buffer
	if f.company != "" {
		fmt.Fprintln(&buf, f.company)
	}
	fmt.Fprintf(&buf, "Statement of account: %s (%s)\n", st.Account.Name, st.Account.Type)
	fmt.Fprintf(&buf, "Period: %s to %s\n", periodBound(st.Start, "beginning"), periodBound(st.End, "today"))
	fmt.Fprintf(&buf, "Starting balance: %s\n\n", f.Money(st.StartingBalance))

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tReference\tDebit\tCredit\tBalance\t")
	for _, e := range st.Entries {
		debit, credit := "", ""
		if e.Debit {
			debit = f.Money(e.Amount)
		} else {
			credit = f.Money(e.Amount)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", e.Date.Format("2006-01-02"), e.Reference, debit, credit, f.Money(e.RunningBalance))
	}
	_ = tw.Flush()

	fmt.Fprintf(&buf, "\nTotal debit: %s\n", f.Money(st.TotalDebit))
	fmt.Fprintf(&buf, "Total credit: %s\n", f.Money(st.TotalCredit))
	fmt.Fprintf(&buf, "Ending balance: %s\n", f.Money(st.EndingBalance))
	return strings.TrimRight(buf.String(), "\n") + "\n"
}

func periodBound(t time.Time, open string) string {
	if t.IsZero() {
		return open
	}
	return t.Format("2006-01-02")
}
