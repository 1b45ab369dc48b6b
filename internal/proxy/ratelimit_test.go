package proxy

import "testing"

func TestNodeLimiterAllowsWithinBurst(t *testing.T) {
	l := NewNodeLimiter(1, 3)
	for i := 0; i < 3; i++ {
		if !l.Allow("n1") {
			t.Fatalf("expected request %d to be allowed within burst", i)
		}
	}
}

func TestNodeLimiterRejectsOverCapacity(t *testing.T) {
	l := NewNodeLimiter(0, 0)
	allowed, delay := l.Reserve("n1")
	if allowed {
		t.Fatal("expected reservation to be rejected at zero burst")
	}
	if delay <= 0 {
		t.Fatal("expected a positive reported delay")
	}
}

func TestNodeLimiterBucketsAreIndependentPerNode(t *testing.T) {
	l := NewNodeLimiter(0.001, 1)
	if !l.Allow("n1") {
		t.Fatal("expected first request on n1 to be allowed")
	}
	if l.Allow("n1") {
		t.Fatal("expected second immediate request on n1 to be denied")
	}
	if !l.Allow("n2") {
		t.Fatal("expected n2's independent bucket to allow its first request")
	}
}
