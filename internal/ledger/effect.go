package ledger

import "github.com/shopspring/decimal"

// Direction is the effect a transaction has on an account balance.
type Direction int

const (
	Increase Direction = 1
	Decrease Direction = -1
)

// Effect maps (account type, transaction kind, document tag) to a balance
// direction. It is the only place the sign convention is defined; the posting
// engine, the ledger store and the statement reader all go through it.
//
//	customer: debit or invoice-tagged increases, credit decreases
//	supplier: credit or purchase-tagged increases, debit decreases
//	others:   debit increases, credit decreases
//
// A journal transaction counts as debit when isDebit is set.
func Effect(accountType AccountType, kind Kind, isDebit bool, documentType DocumentType) Direction {
	debit := kind == KindDebit || (kind == KindJournal && isDebit)
	switch accountType {
	case AccountTypeCustomer:
		if documentType == DocumentTypeInvoice || debit {
			return Increase
		}
		return Decrease
	case AccountTypeSupplier:
		if documentType == DocumentTypePurchase || !debit {
			return Increase
		}
		return Decrease
	default:
		if debit {
			return Increase
		}
		return Decrease
	}
}

// Signed returns the transaction amount with the sign it has on an account of
// the given type.
func Signed(accountType AccountType, t Transaction) decimal.Decimal {
	if Effect(accountType, t.Kind, t.IsDebit, t.DocumentType) == Increase {
		return t.Amount
	}
	return t.Amount.Neg()
}

// Visible reports whether a transaction belongs on a statement for an account
// of the given type. Customer statements never show purchase-tagged rows and
// supplier statements never show invoice-tagged rows.
func Visible(accountType AccountType, documentType DocumentType) bool {
	switch accountType {
	case AccountTypeCustomer:
		return documentType != DocumentTypePurchase
	case AccountTypeSupplier:
		return documentType != DocumentTypeInvoice
	default:
		return true
	}
}
