package timeline

import "testing"

func TestTimeRangeOverlaps(t *testing.T) {
	tests := []struct {
		a, b TimeRange
		want bool
	}{
		{TimeRange{0, 10}, TimeRange{5, 15}, true},
		{TimeRange{0, 10}, TimeRange{10, 20}, false},
		{TimeRange{0, 10}, TimeRange{2, 3}, true},
		{TimeRange{0, 10}, TimeRange{20, 30}, false},
		{TimeRange{10, 5}, TimeRange{0, 20}, true},
		{TimeRange{5, 5}, TimeRange{0, 10}, true},
		{TimeRange{5, 5}, TimeRange{5, 5}, false},
	}
	for _, tc := range tests {
		if got := tc.a.Overlaps(tc.b); got != tc.want {
			t.Fatalf("%+v overlaps %+v: got %v want %v", tc.a, tc.b, got, tc.want)
		}
		if tc.a.Overlaps(tc.b) != tc.b.Overlaps(tc.a) {
			t.Fatalf("overlap not symmetric for %+v and %+v", tc.a, tc.b)
		}
	}
}

func TestTimeRangeDurationAndContains(t *testing.T) {
	r := TimeRange{Start: 10, End: 20}
	if r.Duration() != 10 {
		t.Fatalf("unexpected duration %d", r.Duration())
	}
	if !r.Contains(10) || !r.Contains(19) {
		t.Fatal("expected range to contain its interior")
	}
	if r.Contains(20) || r.Contains(9) {
		t.Fatal("range end is exclusive")
	}
	if (TimeRange{Start: 20, End: 10}).Duration() != -10 {
		t.Fatal("malformed ranges keep a negative duration")
	}
}

func TestRenumber(t *testing.T) {
	in := []Entry{NewEntry(7, 0, 10, "a"), NewEntry(3, 10, 20, "b")}
	out := Renumber(in)
	if out[0].Order != 0 || out[1].Order != 1 {
		t.Fatalf("unexpected orders: %+v", out)
	}
	if in[0].Order != 7 {
		t.Fatal("renumber must not touch its input")
	}
}
