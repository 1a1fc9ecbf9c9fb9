package residence

import (
	"fmt"
	"time"
)

// CustodyStatus tracks physical Emirates-ID-card custody for cases that have
// passed the typing stages. It is a deliberately restricted pipeline: exactly
// one forward edge per status and no reverse transitions.
type CustodyStatus string

const (
	CustodyPending   CustodyStatus = "PENDING"
	CustodyReceived  CustodyStatus = "RECEIVED"
	CustodyDelivered CustodyStatus = "DELIVERED"
)

var custodyNext = map[CustodyStatus]CustodyStatus{
	CustodyPending:  CustodyReceived,
	CustodyReceived: CustodyDelivered,
}

// IsValid returns true if s is a defined custody status.
func (s CustodyStatus) IsValid() bool {
	switch s {
	case CustodyPending, CustodyReceived, CustodyDelivered:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s CustodyStatus) String() string { return string(s) }

// CanAdvanceTo returns true if target is the single allowed successor of s.
func (s CustodyStatus) CanAdvanceTo(target CustodyStatus) bool {
	return custodyNext[s] == target
}

// ParseCustodyStatus converts a wire value into a CustodyStatus.
func ParseCustodyStatus(raw string) (CustodyStatus, error) {
	s := CustodyStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("residence: unknown custody status %q", raw)
	}
	return s, nil
}

// Custody field names, used for per-field missing-value reporting.
const (
	FieldCardNumber  FieldName = "card_number"
	FieldCardExpiry  FieldName = "card_expiry"
	FieldHolderName  FieldName = "holder_name"
	FieldDateOfBirth FieldName = "date_of_birth"
	FieldRecipient   FieldName = "recipient"
)

// CustodyRecord holds the card-handoff data of one case. The front/back
// images are advisory; custody transitions never require an attachment.
type CustodyRecord struct {
	Status        CustodyStatus
	CardNumber    string
	CardExpiry    string
	HolderName    string
	DateOfBirth   string
	Recipient     string
	DeliveredAt   *time.Time
	FrontImageRef string
	BackImageRef  string
}

func (r *CustodyRecord) clone() *CustodyRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.DeliveredAt != nil {
		t := *r.DeliveredAt
		cp.DeliveredAt = &t
	}
	return &cp
}
