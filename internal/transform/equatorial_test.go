package transform

import (
	"math"
	"testing"
)

func TestParseRA(t *testing.T) {
	tests := []struct {
		in      string
		wantHrs float64
		wantErr bool
	}{
		{in: "23h09m16.641s", wantHrs: 23.154622},
		{in: "23:09:16.641", wantHrs: 23.154622},
		{in: "23 09 16.641", wantHrs: 23.154622},
		{in: "05h34m", wantHrs: 5.566667},
		{in: "5.5", wantHrs: 5.5},
		{in: "24:00:00", wantErr: true},
		{in: "12:61:00", wantErr: true},
		{in: "12.5:10:00", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ra, err := ParseRA(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRA(%q) = %+v, want error", tt.in, ra)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRA(%q): %v", tt.in, err)
			}
			got := Equatorial{RA: ra}.RAHours()
			if math.Abs(got-tt.wantHrs) > 1e-5 {
				t.Errorf("ParseRA(%q) = %.6f h, want %.6f h", tt.in, got, tt.wantHrs)
			}
		})
	}
}

func TestParseDec(t *testing.T) {
	tests := []struct {
		in      string
		wantDeg float64
		wantErr bool
	}{
		{in: `-6°43'11.61"`, wantDeg: -6.719892},
		{in: "-06:43:11.61", wantDeg: -6.719892},
		{in: "+41 16 09", wantDeg: 41.269167},
		{in: "-0d30m0s", wantDeg: -0.5},
		{in: "89.264", wantDeg: 89.264},
		{in: "-22.0145", wantDeg: -22.0145},
		{in: "91:00:00", wantErr: true},
		{in: "45:75:00", wantErr: true},
		{in: "north", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			dec, err := ParseDec(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDec(%q) = %+v, want error", tt.in, dec)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDec(%q): %v", tt.in, err)
			}
			got := Equatorial{Dec: dec}.DecDegrees()
			if math.Abs(got-tt.wantDeg) > 1e-5 {
				t.Errorf("ParseDec(%q) = %.6f°, want %.6f°", tt.in, got, tt.wantDeg)
			}
		})
	}
}

func TestRAHoursWraps(t *testing.T) {
	eq := Equatorial{RA: HMS{H: 25, M: 30}}
	if got := eq.RAHours(); math.Abs(got-1.5) > 1e-12 {
		t.Errorf("RAHours() = %v, want 1.5", got)
	}
	eq = Equatorial{RA: HMS{H: -1}}
	if got := eq.RAHours(); math.Abs(got-23) > 1e-12 {
		t.Errorf("RAHours() = %v, want 23", got)
	}
}

func TestEquatorialFromDegreesRoundTrip(t *testing.T) {
	for _, c := range [][2]float64{{0, 0}, {83.8221, -5.3911}, {347.3193, -6.7199}, {10.6847, 41.2692}, {-15, -89.5}} {
		eq := EquatorialFromDegrees(c[0], c[1])
		wantRA := c[0]
		if wantRA < 0 {
			wantRA += 360
		}
		if math.Abs(eq.RADegrees()-wantRA) > 1e-9 {
			t.Errorf("RA %v round-tripped to %v", c[0], eq.RADegrees())
		}
		if math.Abs(eq.DecDegrees()-c[1]) > 1e-9 {
			t.Errorf("Dec %v round-tripped to %v", c[1], eq.DecDegrees())
		}
	}
}
