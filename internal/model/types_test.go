package model

import "testing"

func TestNormalizeCondition(t *testing.T) {
	tests := []struct {
		display string
		want    Condition
	}{
		{"New", ConditionNew},
		{"Brand New", ConditionNew},
		{"New other (see details)", ConditionNew},
		{"Open box", ConditionUsed},
		{"Used", ConditionUsed},
		{"Pre-owned", ConditionUsed},
		{"Certified - Refurbished", ConditionRefurb},
		{"Seller refurbished", ConditionRefurb},
		{"Excellent - Refurbished", ConditionRefurb},
		{"For parts or not working", ConditionForParts},
		{"Not working", ConditionForParts},
		{"", ConditionUsed},
		{"Something eBay invents next year", ConditionUsed},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			if got := NormalizeCondition(tt.display); got != tt.want {
				t.Errorf("NormalizeCondition(%q) = %q, want %q", tt.display, got, tt.want)
			}
		})
	}
}

func TestValidFrequency(t *testing.T) {
	for _, f := range []CheckFrequency{CheckHourly, CheckDaily, CheckWeekly} {
		if !ValidFrequency(f) {
			t.Errorf("%q should be valid", f)
		}
	}
	for _, f := range []CheckFrequency{"", "fortnightly", "Daily"} {
		if ValidFrequency(f) {
			t.Errorf("%q should be invalid", f)
		}
	}
}
