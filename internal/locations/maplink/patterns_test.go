package maplink

import "testing"

func TestExtractCoordinate(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		lat, lng float64
		ok       bool
	}{
		{name: "at pattern", url: "https://www.google.com/maps/place/Tahrir/@15.3547,44.2066,17z/data=!3m1", lat: 15.3547, lng: 44.2066, ok: true},
		{name: "at pattern negative", url: "https://www.google.com/maps/@-33.8688,151.2093,12z", lat: -33.8688, lng: 151.2093, ok: true},
		{name: "q pattern", url: "https://www.google.com/maps?q=15.1,44.9", lat: 15.1, lng: 44.9, ok: true},
		{name: "q pattern encoded comma", url: "https://maps.google.com/?q=15.1%2C44.9&z=16", lat: 15.1, lng: 44.9, ok: true},
		{name: "ll pattern", url: "https://maps.google.com/?ll=12.7797,45.0365&z=14", lat: 12.7797, lng: 45.0365, ok: true},
		{name: "center pattern", url: "https://maps.example.com/view?zoom=4&center=13.58,44.02", lat: 13.58, lng: 44.02, ok: true},
		{name: "at wins over q", url: "https://www.google.com/maps/@1.5,2.5,10z?q=3.5,4.5", lat: 1.5, lng: 2.5, ok: true},
		{name: "out of range at falls through to q", url: "https://www.google.com/maps/@95.0,44.0,10z?q=15.1,44.9", lat: 15.1, lng: 44.9, ok: true},
		{name: "text q falls through to ll", url: "https://maps.google.com/?q=Hadda,Sanaa&ll=15.3,44.2", lat: 15.3, lng: 44.2, ok: true},
		{name: "out of range latitude", url: "https://www.google.com/maps?q=91.0,44.9", ok: false},
		{name: "out of range longitude", url: "https://www.google.com/maps/@15.0,181.0,10z", ok: false},
		{name: "no coordinates", url: "https://www.google.com/maps/place/Sanaa", ok: false},
		{name: "short link never embeds", url: "https://maps.app.goo.gl/AbCdEf123", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			coord, ok := ExtractCoordinate(tc.url)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v (%+v)", tc.ok, ok, coord)
			}
			if !ok {
				return
			}
			if coord.Latitude != tc.lat || coord.Longitude != tc.lng {
				t.Fatalf("expected (%v, %v), got (%v, %v)", tc.lat, tc.lng, coord.Latitude, coord.Longitude)
			}
		})
	}
}

func TestExtractCoordinateReturnsExactPair(t *testing.T) {
	pairs := [][2]float64{{0, 0}, {15.369445, 44.191006}, {-89.999, 179.999}, {90, -180}, {-12.5, -77.0375}}
	for _, p := range pairs {
		link := "https://www.google.com/maps/@" + format(p[0]) + "," + format(p[1]) + ",15z"
		coord, ok := ExtractCoordinate(link)
		if !ok || coord.Latitude != p[0] || coord.Longitude != p[1] {
			t.Fatalf("%s: expected %v, got %+v ok=%v", link, p, coord, ok)
		}
	}
}
