package models

import "time"

// AccountType is the kind of bank account on file
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
)

// BankInfo is the payout banking document of a psychologist, keyed by the
// psychologist's UID. Owners and administrators may read it.
type BankInfo struct {
	PsychologistID    string      `json:"psychologist_id" db:"psychologist_id"`
	AccountHolderName string      `json:"account_holder_name" validate:"required,max=200"`
	BankName          string      `json:"bank_name" validate:"required,max=120"`
	AccountType       AccountType `json:"account_type" validate:"required,oneof=checking savings"`
	CLABE             string      `json:"clabe,omitempty" validate:"required_unless=IsInternational true,omitempty,len=18,numeric"`
	IsInternational   bool        `json:"is_international"`
	SwiftCode         string      `json:"swift_code,omitempty" validate:"required_if=IsInternational true,omitempty,min=8,max=11,alphanum"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the BankInfo model
func (BankInfo) TableName() string {
	return "bank_info"
}

// MaskedCLABE returns the account number with all but the last four digits hidden
func (b *BankInfo) MaskedCLABE() string {
	if len(b.CLABE) <= 4 {
		return b.CLABE
	}
	masked := make([]byte, len(b.CLABE))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(masked)-4:], b.CLABE[len(b.CLABE)-4:])
	return string(masked)
}
