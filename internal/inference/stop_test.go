package inference

import (
	"errors"
	"testing"
)

func TestNewStopPatternRejectsEmpty(t *testing.T) {
	t.Parallel()
	_, err := NewStopPattern(nil)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
	}
}

func TestStopDetector(t *testing.T) {
	t.Parallel()
	const (
		A int64 = 10
		B int64 = 11
		X int64 = 12
	)

	cases := []struct {
		name    string
		pattern []int64
		feed    []int64
		want    []bool // stop flag after each fed token
	}{
		{
			name:    "matches-trailing-window",
			pattern: []int64{A, B},
			feed:    []int64{X, A, B},
			want:    []bool{false, false, true},
		},
		{
			name:    "prefix-not-enough",
			pattern: []int64{A, B},
			feed:    []int64{A, A},
			want:    []bool{false, false},
		},
		{
			name:    "sticky-after-match",
			pattern: []int64{A, B},
			feed:    []int64{A, B, X, X},
			want:    []bool{false, true, true, true},
		},
		{
			name:    "single-token-pattern",
			pattern: []int64{A},
			feed:    []int64{X, A},
			want:    []bool{false, true},
		},
		{
			name:    "window-must-be-full",
			pattern: []int64{A, A},
			feed:    []int64{A},
			want:    []bool{false},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewStopPattern(tc.pattern)
			if err != nil {
				t.Fatalf("NewStopPattern: %v", err)
			}
			d := NewStopDetector(p, 1)
			for i, id := range tc.feed {
				got := d.Observe(0, id)
				if got != tc.want[i] {
					t.Fatalf("after token %d (%d): stopped = %v, want %v", i, id, got, tc.want[i])
				}
			}
		})
	}
}

func TestStopDetectorRowsIndependent(t *testing.T) {
	t.Parallel()
	p := mustPattern(t, 7)
	d := NewStopDetector(p, 2)

	if d.Observe(0, 7) != true {
		t.Fatal("row 0 should stop")
	}
	if d.Stopped(1) {
		t.Fatal("row 1 stopped without matching")
	}
	if d.AllStopped() {
		t.Fatal("AllStopped with a live row")
	}
	d.Observe(1, 7)
	if !d.AllStopped() {
		t.Fatal("AllStopped after both rows matched")
	}
}

func TestStopPatternIsolatedFromCaller(t *testing.T) {
	t.Parallel()
	src := []int64{1, 2}
	p, err := NewStopPattern(src)
	if err != nil {
		t.Fatalf("NewStopPattern: %v", err)
	}
	src[0] = 99
	if got := p.IDs(); got[0] != 1 {
		t.Fatalf("pattern aliases caller slice: %v", got)
	}
}
