package geo

import (
	"math"
	"testing"
)

func TestHaversineIdenticalPoints(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{51.5074, -0.1278},
		{-33.8688, 151.2093},
		{89.9, 179.9},
	}
	for _, p := range points {
		if got := Haversine(p[0], p[1], p[0], p[1]); got != 0 {
			t.Errorf("Haversine(%v, %v) = %v, want 0", p, p, got)
		}
	}
}

func TestHaversineSymmetric(t *testing.T) {
	tests := []struct {
		name string
		a, b [2]float64
	}{
		{"london-paris", [2]float64{51.5074, -0.1278}, [2]float64{48.8566, 2.3522}},
		{"across equator", [2]float64{1.3521, 103.8198}, [2]float64{-6.2088, 106.8456}},
		{"antimeridian", [2]float64{10, 179.5}, [2]float64{10, -179.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := Haversine(tt.a[0], tt.a[1], tt.b[0], tt.b[1])
			ba := Haversine(tt.b[0], tt.b[1], tt.a[0], tt.a[1])
			if ab != ba {
				t.Errorf("dist(a,b)=%v dist(b,a)=%v", ab, ba)
			}
		})
	}
}

func TestHaversineKnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      [2]float64
		want      float64
		tolerance float64
	}{
		// 赤道上经度差 1 度 ≈ 111.195 km
		{"one degree on equator", [2]float64{0, 0}, [2]float64{0, 1}, 111195, 1},
		{"london-paris", [2]float64{51.5074, -0.1278}, [2]float64{48.8566, 2.3522}, 343556, 500},
		{"antimeridian short hop", [2]float64{0, 179.5}, [2]float64{0, -179.5}, 111195, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a[0], tt.a[1], tt.b[0], tt.b[1])
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Haversine = %.1f, want %.1f ± %.1f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"origin", 0, 0, true},
		{"bounds", 90, -180, true},
		{"lat out of range", 90.1, 0, false},
		{"lng out of range", 0, 180.5, false},
		{"nan", math.NaN(), 0, false},
		{"inf", 0, math.Inf(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCoordinate(tt.lat, tt.lng); got != tt.want {
				t.Errorf("ValidCoordinate(%v, %v) = %v, want %v", tt.lat, tt.lng, got, tt.want)
			}
		})
	}
}
