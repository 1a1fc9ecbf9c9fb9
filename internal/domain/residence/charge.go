package residence

import (
	"fmt"
	"time"
)

// ChargeOption is the payer category that absorbs a stage's cost. The numeric
// values are part of the persisted format and must not change.
type ChargeOption int

const (
	ChargeOptionAccount    ChargeOption = 1
	ChargeOptionSupplier   ChargeOption = 2
	ChargeOptionCreditLine ChargeOption = 3
)

// IsValid returns true if o is a defined charge option.
func (o ChargeOption) IsValid() bool {
	switch o {
	case ChargeOptionAccount, ChargeOptionSupplier, ChargeOptionCreditLine:
		return true
	}
	return false
}

// String returns the display name of the charge option.
func (o ChargeOption) String() string {
	switch o {
	case ChargeOptionAccount:
		return "ACCOUNT"
	case ChargeOptionSupplier:
		return "SUPPLIER"
	case ChargeOptionCreditLine:
		return "CREDIT_LINE"
	}
	return fmt.Sprintf("CHARGE_OPTION(%d)", int(o))
}

// ChargeEntity is one reference-data row that can absorb a stage cost. Its ID
// is only unique within its own category; the same numeric id may denote a
// different account and a different supplier.
type ChargeEntity struct {
	ID   int64
	Name string
}

// ChargedEntityRef pairs an entity id with the category it was selected from.
// A bare id is never meaningful on its own, so the fields are unexported and
// a ref can only be built through the per-category constructors.
type ChargedEntityRef struct {
	option ChargeOption
	id     int64
}

// AccountRef references an account entity.
func AccountRef(id int64) ChargedEntityRef {
	return ChargedEntityRef{option: ChargeOptionAccount, id: id}
}

// SupplierRef references a supplier entity.
func SupplierRef(id int64) ChargedEntityRef {
	return ChargedEntityRef{option: ChargeOptionSupplier, id: id}
}

// CreditLineRef references a credit-type account entity.
func CreditLineRef(id int64) ChargedEntityRef {
	return ChargedEntityRef{option: ChargeOptionCreditLine, id: id}
}

// NewChargeRef builds a ref from a raw option code, as received at the
// service boundary.
func NewChargeRef(option ChargeOption, id int64) (ChargedEntityRef, error) {
	if !option.IsValid() {
		return ChargedEntityRef{}, fmt.Errorf("residence: invalid charge option %d", int(option))
	}
	return ChargedEntityRef{option: option, id: id}, nil
}

// Option returns the payer category of the ref.
func (r ChargedEntityRef) Option() ChargeOption { return r.option }

// EntityID returns the entity id of the ref, meaningful only together with
// Option.
func (r ChargedEntityRef) EntityID() int64 { return r.id }

// Currency is a reference-data currency.
type Currency struct {
	ID   int64
	Code string
	Name string
}

// Company is a reference-data employer company.
type Company struct {
	ID   int64
	Name string
}

// Position is a reference-data job position.
type Position struct {
	ID    int64
	Title string
}

// Nationality is a reference-data nationality.
type Nationality struct {
	ID   int64
	Name string
}

// LookupSet is one session snapshot of the reference data. It is read-only
// once loaded; staleness is handled by replacing the whole snapshot.
type LookupSet struct {
	Currencies     []Currency
	Accounts       []ChargeEntity
	Suppliers      []ChargeEntity
	CreditAccounts []ChargeEntity
	Companies      []Company
	Positions      []Position
	Nationalities  []Nationality
	LoadedAt       time.Time
}

// EntitiesFor returns the selectable payer entities for the given charge
// option from the snapshot.
func EntitiesFor(option ChargeOption, set *LookupSet) []ChargeEntity {
	if set == nil {
		return nil
	}
	switch option {
	case ChargeOptionAccount:
		return set.Accounts
	case ChargeOptionSupplier:
		return set.Suppliers
	case ChargeOptionCreditLine:
		return set.CreditAccounts
	}
	return nil
}

// ValidateCharge checks that the referenced entity exists in the list for its
// own category. An id that exists only in another category's list fails; this
// is what catches the id-namespace collision between accounts and suppliers.
func ValidateCharge(ref ChargedEntityRef, set *LookupSet) error {
	for _, e := range EntitiesFor(ref.option, set) {
		if e.ID == ref.id {
			return nil
		}
	}
	return ErrInvalidChargeEntity
}
