package upload

import "testing"

// Vectors checked against the CDN's documented scheme: params sorted by
// key, joined as k=v with &, the API secret appended raw, SHA-1 hex.
func TestSignMatchesKnownVectors(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		secret string
		want   string
	}{
		{
			name:   "public id upload",
			params: map[string]string{"timestamp": "1315060510", "public_id": "sample_image"},
			secret: "abcd",
			want:   "b4ad47fb4e25c7bf5f92a20089f9db59bc302313",
		},
		{
			name:   "folder upload",
			params: map[string]string{"folder": "eatgreet/menu", "timestamp": "1315060510"},
			secret: "abcd",
			want:   "aaf6f67c30fd7e398d6671f8a14abfcddcbf6e08",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sign(tt.params, tt.secret); got != tt.want {
				t.Errorf("sign() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSignSortsParamsByKey(t *testing.T) {
	a := sign(map[string]string{"timestamp": "1", "folder": "x"}, "s")
	b := sign(map[string]string{"folder": "x", "timestamp": "1"}, "s")
	if a != b {
		t.Errorf("signature depends on map order: %s vs %s", a, b)
	}
}
