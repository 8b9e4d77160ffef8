package infra

import (
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Hour,
	})

	for i := 0; i < 3; i++ {
		if !cb.Allow() {
			t.Fatalf("closed breaker rejected request %d", i)
		}
		cb.RecordFailure()
	}

	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want OPEN", cb.GetState())
	}
	if cb.Allow() {
		t.Error("open breaker allowed request before timeout")
	}
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Millisecond,
	})

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatal("breaker did not open")
	}

	time.Sleep(5 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("breaker did not half-open after timeout")
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("state = %v, want HALF_OPEN", cb.GetState())
	}

	cb.RecordSuccess()
	cb.RecordSuccess()
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want CLOSED after recovery", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Millisecond,
	})

	cb.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	cb.Allow() // transitions to half-open
	cb.RecordFailure()

	if cb.GetState() != StateOpen {
		t.Errorf("state = %v, want OPEN after half-open failure", cb.GetState())
	}
}
