package proxy

import (
	"testing"

	"deliverycore/internal/store"
)

func TestDeriveHealth(t *testing.T) {
	cases := []struct {
		rate float64
		want store.ProxyHealth
	}{
		{1.0, store.HealthHealthy},
		{0.85, store.HealthHealthy},
		{0.84, store.HealthDegraded},
		{0.70, store.HealthDegraded},
		{0.69, store.HealthOffline},
		{0.0, store.HealthOffline},
	}
	for _, c := range cases {
		if got := DeriveHealth(c.rate); got != c.want {
			t.Errorf("DeriveHealth(%v) = %v, want %v", c.rate, got, c.want)
		}
	}
}

func TestSelectable(t *testing.T) {
	base := &store.ProxyNode{
		Status:      store.ProxyOnline,
		Health:      store.HealthHealthy,
		CurrentLoad: 1,
		Capacity:    10,
	}
	if !Selectable(base) {
		t.Fatal("expected base node to be selectable")
	}

	offline := *base
	offline.Status = store.ProxyOffline
	if Selectable(&offline) {
		t.Fatal("expected operationally OFFLINE node to be unselectable")
	}

	derivedOffline := *base
	derivedOffline.Health = store.HealthOffline
	if Selectable(&derivedOffline) {
		t.Fatal("expected derived-OFFLINE node to be unselectable")
	}

	full := *base
	full.CurrentLoad = full.Capacity
	if Selectable(&full) {
		t.Fatal("expected at-capacity node to be unselectable")
	}
}
