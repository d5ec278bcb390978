// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bq_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/combiner/bq"
)

// =============================================================================
// Basic Operations
// =============================================================================

// TestSPSCBasic tests basic SPSC (Single Producer, Single Consumer) operations.
// SPSC provides wait-free operations for both enqueue and dequeue.
func TestSPSCBasic(t *testing.T) {
	q := bq.NewSPSC[int](3)

	if q.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", q.Cap())
	}

	for i := range 4 {
		v := i + 100
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	v := 999
	if err := q.Enqueue(&v); !errors.Is(err, bq.ErrWouldBlock) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}

	for i := range 4 {
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if val != i+100 {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, val, i+100)
		}
	}

	if _, err := q.Dequeue(); !errors.Is(err, bq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestMPMCBasic tests basic MPMC (Multiple Producer, Multiple Consumer) operations.
// MPMC provides lock-free operations for both enqueue and dequeue.
func TestMPMCBasic(t *testing.T) {
	q := bq.NewMPMC[int](3)

	if q.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", q.Cap())
	}

	for i := range 4 {
		v := i + 100
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	v := 999
	if err := q.Enqueue(&v); !errors.Is(err, bq.ErrWouldBlock) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}

	for i := range 4 {
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if val != i+100 {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, val, i+100)
		}
	}

	if _, err := q.Dequeue(); !errors.Is(err, bq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// =============================================================================
// Wrap-Around Tests - Verify index wrap-around behavior
// =============================================================================

// TestSPSCWrapAround tests SPSC wrap-around with multiple fill/drain cycles.
func TestSPSCWrapAround(t *testing.T) {
	q := bq.NewSPSC[int](4)

	for round := range 10 {
		for i := range 4 {
			v := round*100 + i
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("round %d enqueue %d: %v", round, i, err)
			}
		}

		for i := range 4 {
			val, err := q.Dequeue()
			if err != nil {
				t.Fatalf("round %d dequeue %d: %v", round, i, err)
			}
			expected := round*100 + i
			if val != expected {
				t.Fatalf("round %d dequeue %d: got %d, want %d", round, i, val, expected)
			}
		}
	}
}

// TestMPMCWrapAround tests MPMC wrap-around with multiple fill/drain cycles.
func TestMPMCWrapAround(t *testing.T) {
	q := bq.NewMPMC[int](4)

	for round := range 10 {
		for i := range 4 {
			v := round*100 + i
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("round %d enqueue %d: %v", round, i, err)
			}
		}

		for i := range 4 {
			val, err := q.Dequeue()
			if err != nil {
				t.Fatalf("round %d dequeue %d: %v", round, i, err)
			}
			expected := round*100 + i
			if val != expected {
				t.Fatalf("round %d dequeue %d: got %d, want %d", round, i, val, expected)
			}
		}
	}
}

// =============================================================================
// Edge Cases
// =============================================================================

// TestZeroValue tests that zero is a valid value.
func TestZeroValue(t *testing.T) {
	q := bq.NewMPMC[int](4)
	v := 0
	if err := q.Enqueue(&v); err != nil {
		t.Fatalf("enqueue 0: %v", err)
	}
	val, err := q.Dequeue()
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if val != 0 {
		t.Fatalf("got %d, want 0", val)
	}
}

// =============================================================================
// Capacity Tests
// =============================================================================

// TestCapacityRounding tests that capacity is rounded up to next power of 2.
func TestCapacityRounding(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{7, 8},
		{8, 8},
		{9, 16},
		{100, 128},
		{1000, 1024},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			q := bq.NewMPMC[int](tt.input)
			if q.Cap() != tt.expected {
				t.Fatalf("NewMPMC(%d).Cap() = %d, want %d", tt.input, q.Cap(), tt.expected)
			}
		})
	}
}

// TestPanicOnSmallCapacity tests that capacity < 2 causes panic.
func TestPanicOnSmallCapacity(t *testing.T) {
	tests := []struct {
		name   string
		create func()
	}{
		{"SPSC", func() { bq.NewSPSC[int](1) }},
		{"MPMC", func() { bq.NewMPMC[int](1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected panic for capacity < 2")
				}
			}()
			tt.create()
		})
	}
}

// =============================================================================
// Interface Compliance Tests
// =============================================================================

func TestQueueInterface(t *testing.T) {
	var _ bq.Queue[int] = bq.NewMPMC[int](8)
	var _ bq.Queue[int] = bq.NewSPSC[int](8)
	var _ bq.Drainer = bq.NewMPMC[int](8)
}
