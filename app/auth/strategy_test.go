package auth

import "testing"

func TestParseStrategy(t *testing.T) {
	testCases := []struct {
		input    string
		expected Strategy
		wantErr  bool
	}{
		{"", StrategyToken, false},
		{"token", StrategyToken, false},
		{"jwt", StrategyToken, false},
		{"session", StrategySession, false},
		{"basic", StrategyBasic, false},
		{"oauth", StrategyToken, true},
		{"TOKEN", StrategyToken, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			actual, err := ParseStrategy(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseStrategy(%q) error = %v; wantErr %v", tc.input, err, tc.wantErr)
			}
			if actual != tc.expected {
				t.Errorf("ParseStrategy(%q) = %v; want %v", tc.input, actual, tc.expected)
			}
		})
	}
}
