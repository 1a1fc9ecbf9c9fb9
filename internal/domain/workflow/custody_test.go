package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/tadbeer/visaflow/internal/domain/residence"
)

// custodyEligibleCase returns a case past the Emirates ID stage.
func custodyEligibleCase(t *testing.T) *residence.Case {
	t.Helper()
	return advanceTo(t, freshCase(), residence.StageEmiratesID)
}

func receiveUpdate() CustodyUpdate {
	return CustodyUpdate{
		Target:      residence.CustodyReceived,
		CardNumber:  "784-1988-1234567-1",
		CardExpiry:  "2028-02-15",
		HolderName:  "Amira Hassan",
		DateOfBirth: "1988-06-12",
	}
}

func TestCustodyRequiresEmiratesIDProgress(t *testing.T) {
	c := advanceTo(t, freshCase(), residence.StageMedical) // progress 6
	_, err := ApplyCustodyUpdate(c, receiveUpdate())
	if !errors.Is(err, residence.ErrPriorStageIncomplete) {
		t.Errorf("expected ErrPriorStageIncomplete, got %v", err)
	}
}

func TestCustodyPendingToReceived(t *testing.T) {
	c := custodyEligibleCase(t)

	next, err := ApplyCustodyUpdate(c, receiveUpdate())
	if err != nil {
		t.Fatalf("ApplyCustodyUpdate: %v", err)
	}
	if next.CustodyStatus() != residence.CustodyReceived {
		t.Errorf("status = %v", next.CustodyStatus())
	}
	if next.Custody.CardNumber != "784-1988-1234567-1" {
		t.Errorf("card number = %q", next.Custody.CardNumber)
	}
	// Input untouched.
	if c.Custody != nil {
		t.Error("input case was mutated")
	}
}

func TestCustodyReceivedRequiresCardFields(t *testing.T) {
	c := custodyEligibleCase(t)

	upd := receiveUpdate()
	upd.HolderName = ""
	_, err := ApplyCustodyUpdate(c, upd)
	if !errors.Is(err, residence.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	var terr *residence.TransitionError
	if !errors.As(err, &terr) || terr.Field != residence.FieldHolderName {
		t.Errorf("missing field = %v", err)
	}
}

func TestCustodyStoredFieldsSatisfyReceive(t *testing.T) {
	c := custodyEligibleCase(t)
	c.Custody = &residence.CustodyRecord{
		Status:      residence.CustodyPending,
		CardNumber:  "784-1988-1234567-1",
		CardExpiry:  "2028-02-15",
		HolderName:  "Amira Hassan",
		DateOfBirth: "1988-06-12",
	}

	next, err := ApplyCustodyUpdate(c, CustodyUpdate{Target: residence.CustodyReceived})
	if err != nil {
		t.Fatalf("receive with stored fields rejected: %v", err)
	}
	if next.CustodyStatus() != residence.CustodyReceived {
		t.Errorf("status = %v", next.CustodyStatus())
	}
}

func TestCustodyCannotSkipReceived(t *testing.T) {
	c := custodyEligibleCase(t)
	_, err := ApplyCustodyUpdate(c, CustodyUpdate{
		Target:    residence.CustodyDelivered,
		Recipient: "Amira Hassan",
	})
	if !errors.Is(err, residence.ErrPriorStageIncomplete) {
		t.Errorf("expected ErrPriorStageIncomplete, got %v", err)
	}
}

func TestCustodyDeliveredStampsTimestamp(t *testing.T) {
	c := custodyEligibleCase(t)
	received, err := ApplyCustodyUpdate(c, receiveUpdate())
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	before := time.Now().UTC()
	delivered, err := ApplyCustodyUpdate(received, CustodyUpdate{
		Target:    residence.CustodyDelivered,
		Recipient: "Amira Hassan",
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.CustodyStatus() != residence.CustodyDelivered {
		t.Errorf("status = %v", delivered.CustodyStatus())
	}
	if delivered.Custody.DeliveredAt == nil || delivered.Custody.DeliveredAt.Before(before) {
		t.Errorf("DeliveredAt = %v", delivered.Custody.DeliveredAt)
	}
	if delivered.Custody.Recipient != "Amira Hassan" {
		t.Errorf("recipient = %q", delivered.Custody.Recipient)
	}
}

func TestCustodyExplicitDeliveryTime(t *testing.T) {
	c := custodyEligibleCase(t)
	received, err := ApplyCustodyUpdate(c, receiveUpdate())
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	delivered, err := ApplyCustodyUpdate(received, CustodyUpdate{
		Target:      residence.CustodyDelivered,
		Recipient:   "Amira Hassan",
		DeliveredAt: &at,
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !delivered.Custody.DeliveredAt.Equal(at) {
		t.Errorf("DeliveredAt = %v, want %v", delivered.Custody.DeliveredAt, at)
	}
}

func TestCustodyDeliveredIsTerminal(t *testing.T) {
	c := custodyEligibleCase(t)
	received, err := ApplyCustodyUpdate(c, receiveUpdate())
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	delivered, err := ApplyCustodyUpdate(received, CustodyUpdate{
		Target:    residence.CustodyDelivered,
		Recipient: "Amira Hassan",
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	for _, target := range []residence.CustodyStatus{
		residence.CustodyPending, residence.CustodyReceived, residence.CustodyDelivered,
	} {
		if _, err := ApplyCustodyUpdate(delivered, CustodyUpdate{Target: target}); !errors.Is(err, residence.ErrPriorStageIncomplete) {
			t.Errorf("delivered -> %s: expected ErrPriorStageIncomplete, got %v", target, err)
		}
	}
}

func TestCustodyBlockedOnCancelledCase(t *testing.T) {
	c := custodyEligibleCase(t)
	c.Cancelled = true
	if _, err := ApplyCustodyUpdate(c, receiveUpdate()); !errors.Is(err, residence.ErrCaseTerminal) {
		t.Errorf("expected ErrCaseTerminal, got %v", err)
	}
}

func TestCustodyBlockedOnHold(t *testing.T) {
	c := custodyEligibleCase(t)
	c.OnHold = true
	if _, err := ApplyCustodyUpdate(c, receiveUpdate()); !errors.Is(err, residence.ErrCaseOnHold) {
		t.Errorf("expected ErrCaseOnHold, got %v", err)
	}
}

func TestCustodyInvalidTargetIsNotATransitionError(t *testing.T) {
	c := custodyEligibleCase(t)
	_, err := ApplyCustodyUpdate(c, CustodyUpdate{Target: residence.CustodyStatus("LOST")})
	if err == nil {
		t.Fatal("unknown target accepted")
	}
	var terr *residence.TransitionError
	if errors.As(err, &terr) {
		t.Errorf("malformed request surfaced as TransitionError: %v", err)
	}
}

func TestCustodyStoresCardImages(t *testing.T) {
	c := custodyEligibleCase(t)
	upd := receiveUpdate()
	upd.FrontImageRef = "case_1/card_front.jpg"
	upd.BackImageRef = "case_1/card_back.jpg"

	next, err := ApplyCustodyUpdate(c, upd)
	if err != nil {
		t.Fatalf("receive with images: %v", err)
	}
	if next.Custody.FrontImageRef == "" || next.Custody.BackImageRef == "" {
		t.Error("card image refs not stored")
	}
}
