package statement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/ledger"
)

func TestMoneyFormatting(t *testing.T) {
	f := NewFormatter("Rp", "", "")
	require.Equal(t, "Rp1,234,567.50", f.Money(dec("1234567.5")))
	require.Equal(t, "-Rp40.00", f.Money(dec("-40")))
	require.Equal(t, "Rp0.01", f.Money(dec("0.005")))
	require.Equal(t, "Rp0.00", f.Money(dec("0")))
}

func TestTextStatement(t *testing.T) {
	f := NewFormatter("$", "Odyssey Trading", "en")
	st := Statement{
		Account:         AccountSummary{Name: "Customer A", Type: ledger.AccountTypeCustomer},
		Start:           day(1),
		StartingBalance: dec("10"),
		EndingBalance:   dec("1010"),
		TotalDebit:      dec("1000"),
		TotalCredit:     dec("0"),
		Entries: []Entry{
			{Date: day(2), Reference: "INV-1", Debit: true, Amount: dec("1000"), RunningBalance: dec("1010")},
		},
	}
	out := f.Text(st)
	require.Contains(t, out, "Odyssey Trading\n")
	require.Contains(t, out, "Period: 2025-03-01 to today")
	require.Contains(t, out, "INV-1")
	require.Contains(t, out, "$1,010.00")
	require.Contains(t, out, "Ending balance: $1,010.00")
}
