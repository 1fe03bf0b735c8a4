package youtube

import "testing"

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"PT4M13S", 253},
		{"PT1H", 3600},
		{"PT1H2M3S", 3723},
		{"PT45S", 45},
		{"PT10M", 600},
		{"P1DT2H", 93600},
		{"P2D", 172800},
		{"PT0S", 0},
		{"", 0},
		{"4:13", 0},
		{"PT4M13", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := ParseDuration(tt.in); got != tt.want {
			t.Errorf("ParseDuration(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCount(t *testing.T) {
	if count("") != 0 || count("abc") != 0 || count("42") != 42 {
		t.Fatal("count should parse decimal strings and map anything else to 0")
	}
}
