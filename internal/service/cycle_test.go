package service

import "testing"

func TestSweepActionFor(t *testing.T) {
	cases := []struct {
		day  int
		want SweepAction
	}{
		{1, SweepReset},
		{2, SweepNone},
		{15, SweepNone},
		{29, SweepNone},
		{30, SweepPreset},
		{31, SweepNone},
	}

	for _, tc := range cases {
		if got := SweepActionFor(tc.day); got != tc.want {
			t.Errorf("SweepActionFor(%d) = %s, want %s", tc.day, got, tc.want)
		}
	}
}

func TestSweepActionString(t *testing.T) {
	if SweepPreset.String() != "preset" || SweepReset.String() != "reset" || SweepNone.String() != "none" {
		t.Errorf("unexpected SweepAction strings: %s %s %s", SweepPreset, SweepReset, SweepNone)
	}
}
