package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEffectSignConvention(t *testing.T) {
	cases := []struct {
		name    string
		account AccountType
		kind    Kind
		isDebit bool
		doc     DocumentType
		want    Direction
	}{
		{"customer debit", AccountTypeCustomer, KindDebit, false, DocumentTypeNone, Increase},
		{"customer credit", AccountTypeCustomer, KindCredit, false, DocumentTypeNone, Decrease},
		{"customer invoice tagged credit", AccountTypeCustomer, KindCredit, false, DocumentTypeInvoice, Increase},
		{"customer journal debit", AccountTypeCustomer, KindJournal, true, DocumentTypeNone, Increase},
		{"customer journal credit", AccountTypeCustomer, KindJournal, false, DocumentTypeNone, Decrease},
		{"supplier credit", AccountTypeSupplier, KindCredit, false, DocumentTypeNone, Increase},
		{"supplier debit", AccountTypeSupplier, KindDebit, false, DocumentTypeNone, Decrease},
		{"supplier purchase tagged debit", AccountTypeSupplier, KindDebit, false, DocumentTypePurchase, Increase},
		{"supplier journal debit", AccountTypeSupplier, KindJournal, true, DocumentTypeNone, Decrease},
		{"bank debit", AccountTypeBank, KindDebit, false, DocumentTypeNone, Increase},
		{"cash credit", AccountTypeCash, KindCredit, false, DocumentTypeNone, Decrease},
		{"expense invoice tag ignored", AccountTypeExpense, KindCredit, false, DocumentTypeInvoice, Decrease},
		{"income journal debit", AccountTypeIncome, KindJournal, true, DocumentTypeNone, Increase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Effect(tc.account, tc.kind, tc.isDebit, tc.doc))
		})
	}
}

func TestSignedAndReplay(t *testing.T) {
	account := Account{ID: 1, Type: AccountTypeCustomer, OpeningBalance: decimal.NewFromInt(10)}
	txs := []Transaction{
		{Kind: KindDebit, Amount: decimal.RequireFromString("100.00"), DocumentType: DocumentTypeInvoice},
		{Kind: KindCredit, Amount: decimal.RequireFromString("40.00"), DocumentType: DocumentTypeNone},
	}
	require.True(t, Signed(account.Type, txs[1]).Equal(decimal.RequireFromString("-40")))
	require.True(t, Replay(account, txs).Equal(decimal.RequireFromString("70")))
}

func TestVisibleFiltersOppositeDocuments(t *testing.T) {
	require.False(t, Visible(AccountTypeCustomer, DocumentTypePurchase))
	require.True(t, Visible(AccountTypeCustomer, DocumentTypeInvoice))
	require.False(t, Visible(AccountTypeSupplier, DocumentTypeInvoice))
	require.True(t, Visible(AccountTypeSupplier, DocumentTypeNone))
	require.True(t, Visible(AccountTypeBank, DocumentTypePurchase))
}
