package models

import "testing"

func TestSlipTransitions(t *testing.T) {
	allowed := []struct{ from, to SlipStatus }{
		{SlipStatusWaiting, SlipStatusLoaded},
		{SlipStatusWaiting, SlipStatusDispute},
		{SlipStatusLoaded, SlipStatusDelivered},
		{SlipStatusLoaded, SlipStatusDispute},
		{SlipStatusDelivered, SlipStatusDispute},
		{SlipStatusDispute, SlipStatusDelivered},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be allowed", c.from, c.to)
		}
	}
	forbidden := []struct{ from, to SlipStatus }{
		{SlipStatusWaiting, SlipStatusDelivered},
		{SlipStatusDelivered, SlipStatusWaiting},
		{SlipStatusDelivered, SlipStatusLoaded},
		{SlipStatusDispute, SlipStatusWaiting},
	}
	for _, c := range forbidden {
		if CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be rejected", c.from, c.to)
		}
	}
}

func TestFreightSlipMargin(t *testing.T) {
	slip := FreightSlip{PrixAchatHT: 300, PrixVenteHT: 500}
	if got := slip.Marge(); got != 200 {
		t.Fatalf("Marge() = %v, want 200", got)
	}
	if got := slip.TauxMarge(); got != 40 {
		t.Fatalf("TauxMarge() = %v, want 40", got)
	}
	empty := FreightSlip{}
	if got := empty.TauxMarge(); got != 0 {
		t.Fatalf("TauxMarge() on zero selling price = %v, want 0", got)
	}
}
