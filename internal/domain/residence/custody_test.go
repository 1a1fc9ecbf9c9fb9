package residence

import "testing"

func TestCustodyCanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to CustodyStatus
		want     bool
	}{
		{CustodyPending, CustodyReceived, true},
		{CustodyReceived, CustodyDelivered, true},
		{CustodyPending, CustodyDelivered, false},
		{CustodyReceived, CustodyPending, false},
		{CustodyDelivered, CustodyPending, false},
		{CustodyDelivered, CustodyReceived, false},
		{CustodyPending, CustodyPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseCustodyStatus(t *testing.T) {
	for _, raw := range []string{"PENDING", "RECEIVED", "DELIVERED"} {
		s, err := ParseCustodyStatus(raw)
		if err != nil {
			t.Errorf("ParseCustodyStatus(%q): %v", raw, err)
		}
		if s.String() != raw {
			t.Errorf("round trip %q -> %q", raw, s)
		}
	}
	for _, raw := range []string{"", "pending", "LOST", "RETURNED"} {
		if _, err := ParseCustodyStatus(raw); err == nil {
			t.Errorf("ParseCustodyStatus(%q) accepted", raw)
		}
	}
}
