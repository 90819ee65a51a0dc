package factory

import "testing"

func TestNewPriceClient(t *testing.T) {
	if _, err := NewPriceClient(IDDayAhead); err != nil {
		t.Fatalf("day_ahead client: %v", err)
	}
	if _, err := NewPriceClient("spot_intraday"); err == nil {
		t.Fatal("expected unknown connector error")
	}
}
