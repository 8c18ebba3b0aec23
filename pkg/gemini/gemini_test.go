package gemini

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare", in: `{"detections":[]}`, want: `{"detections":[]}`},
		{name: "fenced", in: "```json\n{\"a\":{\"b\":1}}\n```", want: `{"a":{"b":1}}`},
		{name: "prose around", in: `Here you go: {"x":1} hope it helps`, want: `{"x":1}`},
		{name: "no object", in: "I cannot see a lesion.", wantErr: true},
		{name: "reversed braces", in: "} nope {", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSON) {
					t.Fatalf("err = %v, want ErrNoJSON", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
