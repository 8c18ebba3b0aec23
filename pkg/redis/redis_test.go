package redis

import "testing"

func TestParseCounter(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "42", want: 42},
		{in: "-3", want: -3},
		{in: "many", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseCounter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCounter(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseCounter(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
