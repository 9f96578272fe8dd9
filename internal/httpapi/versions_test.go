package httpapi

import "testing"

func TestSemverLessOrdersByDottedIntegers(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1.2.3", "1.10.0", true},
		{"1.10.0", "1.2.3", false},
		{"1.9.9", "1.9.10", true},
		{"1.9.9", "1.9.9", false},
	}
	for _, c := range cases {
		if got := semverLess(c.a, c.b); got != c.want {
			t.Errorf("semverLess(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
