// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the numeric assertions used across the filter,
// store and report tests.
package testutil

import (
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertFinite fails the test if any element is NaN or ±Inf.
func AssertFinite(t testing.TB, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// AssertAllPositive fails the test unless every element is finite and > 0.
func AssertAllPositive(t testing.TB, data []float64) {
	t.Helper()
	for i, v := range data {
		if !(v > 0) || math.IsInf(v, 0) {
			t.Fatalf("index %d: %v is not strictly positive", i, v)
		}
	}
}

// AssertSliceNear fails the test if got and want differ in length or any
// element pair differs by more than eps.
func AssertSliceNear(t testing.TB, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if d := math.Abs(got[i] - want[i]); d > eps || math.IsNaN(d) {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], d, eps)
		}
	}
}

// MaxAbsDiff returns the largest absolute elementwise difference, or +Inf
// when the lengths differ.
func MaxAbsDiff(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var m float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}
