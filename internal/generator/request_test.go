package generator

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"minimal", Request{UID: "u1"}, false},
		{"full daily", Request{UID: "u1", Objectif: "Perdre du poids", Date: "2024-03-01", Stats: json.RawMessage(`{"poids": 80}`)}, false},
		{"week", Request{UID: "u1", Range: RangeWeek, StartDate: "2024-01-01"}, false},
		{"month", Request{UID: "u1", Range: RangeMonth}, false},
		{"null stats", Request{UID: "u1", Stats: json.RawMessage(`null`)}, false},
		{"missing uid", Request{}, true},
		{"blank uid", Request{UID: "   "}, true},
		{"unknown range", Request{UID: "u1", Range: "year"}, true},
		{"bad date", Request{UID: "u1", Date: "01/03/2024"}, true},
		{"impossible date", Request{UID: "u1", Date: "2024-02-30"}, true},
		{"bad startDate", Request{UID: "u1", Range: RangeWeek, StartDate: "tomorrow"}, true},
		{"invalid stats", Request{UID: "u1", Stats: json.RawMessage(`{"poids":`)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Errorf("Validate() = %v, want ErrInvalidRequest", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestRange_Days(t *testing.T) {
	if got := RangeWeek.Days(); got != 7 {
		t.Errorf("week = %d, want 7", got)
	}
	if got := RangeMonth.Days(); got != 30 {
		t.Errorf("month = %d, want 30", got)
	}
	if got := Range("fortnight").Days(); got != 0 {
		t.Errorf("unknown = %d, want 0", got)
	}
}

func TestRequest_DateResolution(t *testing.T) {
	now := time.Date(2024, 6, 15, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))

	tests := []struct {
		name  string
		req   Request
		daily string
		batch string
	}{
		{"nothing set uses UTC today", Request{UID: "u"}, "2024-06-16", "2024-06-16"},
		{"date only", Request{UID: "u", Date: "2024-03-01"}, "2024-03-01", "2024-03-01"},
		{"startDate wins for batch", Request{UID: "u", Date: "2024-03-01", StartDate: "2024-04-01"}, "2024-03-01", "2024-04-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.req.TargetDate(now)
			if err != nil {
				t.Fatalf("TargetDate: %v", err)
			}
			if got := d.Format("2006-01-02"); got != tt.daily {
				t.Errorf("TargetDate = %s, want %s", got, tt.daily)
			}
			b, err := tt.req.BatchStart(now)
			if err != nil {
				t.Fatalf("BatchStart: %v", err)
			}
			if got := b.Format("2006-01-02"); got != tt.batch {
				t.Errorf("BatchStart = %s, want %s", got, tt.batch)
			}
		})
	}
}
