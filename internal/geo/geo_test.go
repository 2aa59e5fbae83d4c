package geo

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/oschwald/geoip2-golang"
	"github.com/sirupsen/logrus"
)

type fakeCityDB struct {
	calls  int
	cities map[string]*geoip2.City
}

func (f *fakeCityDB) City(ip net.IP) (*geoip2.City, error) {
	f.calls++
	city, ok := f.cities[ip.String()]
	if !ok {
		return nil, errors.New("address not found")
	}
	return city, nil
}

func newCity(iso, name string, lat, long float64) *geoip2.City {
	city := &geoip2.City{}
	city.Country.IsoCode = iso
	city.City.Names = map[string]string{"en": name}
	city.Location.Latitude = lat
	city.Location.Longitude = long
	return city
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestMaxMindResolver_Resolve(t *testing.T) {
	db := &fakeCityDB{cities: map[string]*geoip2.City{
		"1.1.1.1": newCity("JP", "Tokyo", 35.5, 139.5),
	}}
	r, err := newMaxMindResolver(db, 2, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		ip   string
		want Location
	}{
		{
			name: "known address",
			ip:   "1.1.1.1",
			want: Location{City: "Tokyo", CountryCode: "JP", Latitude: 35.5, Longitude: 139.5},
		},
		{name: "unknown address", ip: "2.2.2.2", want: DefaultLocation},
		{name: "not an address", ip: "localhost", want: DefaultLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, r.Resolve(tt.ip)); diff != "" {
				t.Errorf("Resolve() returned unexpected location; diff:\n%s", diff)
			}
		})
	}

	calls := db.calls
	r.Resolve("1.1.1.1")
	if db.calls != calls {
		t.Errorf("Resolve() queried the database for a cached address")
	}
}

func TestCountryIndex(t *testing.T) {
	tests := []struct {
		code string
		want uint8
	}{
		{code: "JP", want: 111},
		{code: "us", want: 225},
		{code: "GB", want: 77},
		{code: "ZZ", want: 0},
	}
	for _, tt := range tests {
		if got := CountryIndex(tt.code); got != tt.want {
			t.Errorf("CountryIndex(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
	if CountryCode(111) != "JP" {
		t.Errorf("CountryCode(111) = %s, want JP", CountryCode(111))
	}
}

func TestNopResolver(t *testing.T) {
	if got := (NopResolver{}).Resolve("1.1.1.1"); got != DefaultLocation {
		t.Errorf("Resolve() = %+v, want the default location", got)
	}
}
