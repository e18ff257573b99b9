package accounts

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/model"
)

const (
	numFields     = 6
	colCompany    = 0
	colNumber     = 1
	colLabel      = 2
	colVATRate    = 3
	colDefExpense = 4
	colDefVAT     = 5
)

var header = []string{"company_id", "account_number", "label", "vat_rate", "default_expense_account", "default_vat_account"}

// ReadAccounts reads plan-comptable.csv.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes plan-comptable.csv.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colCompany] = acct.CompanyID
	row[colNumber] = string(acct.Number)
	row[colLabel] = acct.Label
	if acct.VATRate.Valid {
		row[colVATRate] = acct.VATRate.Decimal.String()
	}
	row[colDefExpense] = string(acct.DefaultExpenseAccount)
	row[colDefVAT] = string(acct.DefaultVATAccount)
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if record[colNumber] == "" {
		return model.Account{}, fmt.Errorf("empty account_number")
	}

	var vatRate decimal.NullDecimal
	if record[colVATRate] != "" {
		d, err := decimal.NewFromString(record[colVATRate])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing vat_rate %q: %w", record[colVATRate], err)
		}
		vatRate = decimal.NewNullDecimal(d)
	}

	return model.Account{
		CompanyID:             record[colCompany],
		Number:                model.AccountNumber(record[colNumber]),
		Label:                 record[colLabel],
		VATRate:               vatRate,
		DefaultExpenseAccount: model.AccountNumber(record[colDefExpense]),
		DefaultVATAccount:     model.AccountNumber(record[colDefVAT]),
	}, nil
}
