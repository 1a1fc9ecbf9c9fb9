package workflow

import (
	"fmt"
	"time"

	"github.com/tadbeer/visaflow/internal/domain/residence"
)

// CustodyUpdate is one proposed transition of the card-custody sub-pipeline.
type CustodyUpdate struct {
	Target residence.CustodyStatus

	// Identity-document fields, required when moving to Received.
	CardNumber  string
	CardExpiry  string
	HolderName  string
	DateOfBirth string

	// Recipient and DeliveredAt apply to the Delivered transition. A nil
	// DeliveredAt is stamped with the current time.
	Recipient   string
	DeliveredAt *time.Time

	// Front/back card images are advisory; zero, one or two may be supplied.
	FrontImageRef string
	BackImageRef  string
}

// ApplyCustodyUpdate advances the custody status of c. Only the single
// forward edge of the current status is allowed; correcting a mistaken
// transition is an administrative operation outside this engine.
func ApplyCustodyUpdate(c *residence.Case, upd CustodyUpdate) (*residence.Case, error) {
	if c.Cancelled {
		return nil, residence.ErrCaseTerminal
	}
	if c.OnHold {
		return nil, residence.ErrCaseOnHold
	}
	if !upd.Target.IsValid() {
		return nil, fmt.Errorf("workflow: invalid custody status %q", upd.Target)
	}

	// Custody only exists for cases that have passed Emirates ID typing.
	if c.Progress < int(residence.StageEmiratesID) {
		return nil, residence.ErrPriorStageIncomplete
	}

	current := c.CustodyStatus()
	if !current.CanAdvanceTo(upd.Target) {
		return nil, residence.ErrPriorStageIncomplete
	}

	if upd.Target == residence.CustodyReceived {
		existing := c.Custody
		for _, check := range []struct {
			name      residence.FieldName
			submitted string
			stored    string
		}{
			{residence.FieldCardNumber, upd.CardNumber, custodyValue(existing, residence.FieldCardNumber)},
			{residence.FieldCardExpiry, upd.CardExpiry, custodyValue(existing, residence.FieldCardExpiry)},
			{residence.FieldHolderName, upd.HolderName, custodyValue(existing, residence.FieldHolderName)},
			{residence.FieldDateOfBirth, upd.DateOfBirth, custodyValue(existing, residence.FieldDateOfBirth)},
		} {
			if check.submitted == "" && check.stored == "" {
				return nil, residence.NewMissingFieldError(check.name)
			}
		}
	}

	// Commit.
	next := c.Clone()
	if next.Custody == nil {
		next.Custody = &residence.CustodyRecord{Status: residence.CustodyPending}
	}
	rec := next.Custody
	rec.Status = upd.Target
	setIfPresent(&rec.CardNumber, upd.CardNumber)
	setIfPresent(&rec.CardExpiry, upd.CardExpiry)
	setIfPresent(&rec.HolderName, upd.HolderName)
	setIfPresent(&rec.DateOfBirth, upd.DateOfBirth)
	setIfPresent(&rec.Recipient, upd.Recipient)
	setIfPresent(&rec.FrontImageRef, upd.FrontImageRef)
	setIfPresent(&rec.BackImageRef, upd.BackImageRef)
	if upd.Target == residence.CustodyDelivered {
		if upd.DeliveredAt != nil {
			t := *upd.DeliveredAt
			rec.DeliveredAt = &t
		} else {
			now := time.Now().UTC()
			rec.DeliveredAt = &now
		}
	}
	next.UpdatedAt = time.Now().UTC()
	return next, nil
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func custodyValue(r *residence.CustodyRecord, f residence.FieldName) string {
	if r == nil {
		return ""
	}
	switch f {
	case residence.FieldCardNumber:
		return r.CardNumber
	case residence.FieldCardExpiry:
		return r.CardExpiry
	case residence.FieldHolderName:
		return r.HolderName
	case residence.FieldDateOfBirth:
		return r.DateOfBirth
	case residence.FieldRecipient:
		return r.Recipient
	}
	return ""
}
