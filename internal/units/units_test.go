package units

import (
	"math"
	"testing"
)

func TestMetersToMiles(t *testing.T) {
	tests := []struct {
		name   string
		meters float64
		want   float64
	}{
		{"zero", 0, 0},
		{"10k", 10000, 6.21371},
		{"one meter", 1, 0.000621371},
		{"negative treated as zero", -500, 0},
		{"NaN treated as zero", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MetersToMiles(tt.meters)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MetersToMiles(%v) = %v, want %v", tt.meters, got, tt.want)
			}
		})
	}
}

func TestIsWheeled(t *testing.T) {
	tests := []struct {
		category string
		want     bool
	}{
		{"Ride", true},
		{"ride", true},
		{"RIDE", true},
		{"Cycling", true},
		{"VirtualRide", true},
		{"virtualride", true},
		{"EBikeRide", true},
		{"GravelRide", true},
		{"Run", false},
		{"Walk", false},
		{"Hike", false},
		{"WeightTraining", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			if got := IsWheeled(tt.category); got != tt.want {
				t.Errorf("IsWheeled(%q) = %v, want %v", tt.category, got, tt.want)
			}
		})
	}
}

func TestForActivity(t *testing.T) {
	tests := []struct {
		name          string
		meters        float64
		category      string
		wantRaw       float64
		wantConverted float64
		wantWheeled   bool
	}{
		{
			name:          "10k ride converts 3.33 to 1",
			meters:        10000,
			category:      "Ride",
			wantRaw:       6.21371,
			wantConverted: 6.21371 / 3.33,
			wantWheeled:   true,
		},
		{
			name:          "10k run is 1 to 1",
			meters:        10000,
			category:      "Run",
			wantRaw:       6.21371,
			wantConverted: 6.21371,
		},
		{
			name:     "no distance",
			meters:   0,
			category: "WeightTraining",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForActivity(tt.meters, tt.category)
			if math.Abs(got.RawMiles-tt.wantRaw) > 1e-9 {
				t.Errorf("RawMiles = %v, want %v", got.RawMiles, tt.wantRaw)
			}
			if math.Abs(got.ConvertedMiles-tt.wantConverted) > 1e-9 {
				t.Errorf("ConvertedMiles = %v, want %v", got.ConvertedMiles, tt.wantConverted)
			}
			if got.IsWheeled != tt.wantWheeled {
				t.Errorf("IsWheeled = %v, want %v", got.IsWheeled, tt.wantWheeled)
			}
		})
	}

	// 6.21 mi ride is roughly 1.866 challenge miles
	ride := ForActivity(10000, "Ride")
	if math.Abs(ride.ConvertedMiles-1.866) > 0.001 {
		t.Errorf("10km ride ConvertedMiles = %v, want ~1.866", ride.ConvertedMiles)
	}
}
