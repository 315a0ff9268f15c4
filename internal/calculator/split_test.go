package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSplitEqually(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		consumers []string
		want      map[string]string
		wantErr   error
	}{
		{
			name:      "even split",
			amount:    "30",
			consumers: []string{"ana", "luis", "marta"},
			want:      map[string]string{"ana": "10", "luis": "10", "marta": "10"},
		},
		{
			name:      "leftover cents go to the first consumers",
			amount:    "10",
			consumers: []string{"ana", "luis", "marta"},
			want:      map[string]string{"ana": "3.34", "luis": "3.33", "marta": "3.33"},
		},
		{
			name:      "duplicates count once",
			amount:    "5",
			consumers: []string{"ana", "ana", "luis"},
			want:      map[string]string{"ana": "2.5", "luis": "2.5"},
		},
		{
			name:      "sub-cent amounts are rounded",
			amount:    "0.015",
			consumers: []string{"ana"},
			want:      map[string]string{"ana": "0.02"},
		},
		{
			name:      "no consumers",
			amount:    "10",
			consumers: nil,
			wantErr:   ErrNoConsumers,
		},
		{
			name:      "zero amount",
			amount:    "0",
			consumers: []string{"ana"},
			wantErr:   ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitEqually(d(tt.amount), tt.consumers)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SplitEqually() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitEqually() unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("SplitEqually() returned %d shares, want %d", len(got), len(tt.want))
			}
			for id, want := range tt.want {
				if !got[id].Equal(d(want)) {
					t.Errorf("share of %s = %s, want %s", id, got[id], want)
				}
			}
		})
	}
}
