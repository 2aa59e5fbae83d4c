package geo

import (
	"fmt"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/sirupsen/logrus"

	"github.com/kisumi/kisumi/internal/core/cache"
)

// Location is where a client is connecting from.
type Location struct {
	City        string
	CountryCode string
	Latitude    float32
	Longitude   float32
	// UTCOffset is in hours.
	UTCOffset int8
}

// Country returns the client's index for the location's country.
func (l Location) Country() uint8 {
	return CountryIndex(l.CountryCode)
}

// DefaultLocation is used whenever an address cannot be resolved.
var DefaultLocation = Location{CountryCode: "XX"}

// Resolver looks up the location of an IP address. Lookups never fail; an
// unknown address resolves to DefaultLocation.
type Resolver interface {
	Resolve(ip string) Location
}

// NopResolver resolves every address to DefaultLocation.
type NopResolver struct{}

func (NopResolver) Resolve(string) Location { return DefaultLocation }

// cityLookup is the subset of *geoip2.Reader used by MaxMindResolver.
type cityLookup interface {
	City(ip net.IP) (*geoip2.City, error)
}

// MaxMindResolver resolves addresses against a MaxMind City database, keeping
// recent results in an LRU cache.
type MaxMindResolver struct {
	Logger *logrus.Logger

	db    cityLookup
	close func() error
	cache *cache.LRU[string, Location]
}

// OpenMaxMind opens the database at path.
func OpenMaxMind(path string, cacheSize int, logger *logrus.Logger) (*MaxMindResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geolocation database: %w", err)
	}
	r, err := newMaxMindResolver(reader, cacheSize, logger)
	if err != nil {
		reader.Close()
		return nil, err
	}
	r.close = reader.Close
	return r, nil
}

func newMaxMindResolver(db cityLookup, cacheSize int, logger *logrus.Logger) (*MaxMindResolver, error) {
	lru, err := cache.NewLRU[string, Location](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating geolocation cache: %w", err)
	}
	return &MaxMindResolver{Logger: logger, db: db, cache: lru}, nil
}

func (r *MaxMindResolver) Resolve(ip string) Location {
	loc, err := r.cache.GetOrLoad(ip, r.lookup)
	if err != nil {
		r.Logger.WithFields(logrus.Fields{"ip": ip}).Debugf("geolocation lookup failed: %v", err)
		return DefaultLocation
	}
	return loc
}

func (r *MaxMindResolver) lookup(ip string) (Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}, fmt.Errorf("invalid address %q", ip)
	}
	city, err := r.db.City(parsed)
	if err != nil {
		return Location{}, err
	}
	if city.Country.IsoCode == "" {
		return Location{}, fmt.Errorf("no country for %s", ip)
	}

	return Location{
		City:        city.City.Names["en"],
		CountryCode: city.Country.IsoCode,
		Latitude:    float32(city.Location.Latitude),
		Longitude:   float32(city.Location.Longitude),
		UTCOffset:   utcOffset(city.Location.TimeZone),
	}, nil
}

func (r *MaxMindResolver) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func utcOffset(zone string) int8 {
	if zone == "" {
		return 0
	}
	tz, err := time.LoadLocation(zone)
	if err != nil {
		return 0
	}
	_, offset := time.Now().In(tz).Zone()
	return int8(offset / 3600)
}
