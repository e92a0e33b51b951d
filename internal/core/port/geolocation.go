package port

import (
	"context"
	"errors"
)

// ErrLocationNotFound indicates the provider has no record for the address.
var ErrLocationNotFound = errors.New("location not found")

// GeoLocation describes a coarse resolved location for a network address.
type GeoLocation struct {
	City      string
	Region    string
	Country   string
	Latitude  float64
	Longitude float64
	Timezone  string
}

// Label renders the location as a short human-readable string.
func (l GeoLocation) Label() string {
	switch {
	case l.City != "" && l.Country != "":
		return l.City + ", " + l.Country
	case l.City != "":
		return l.City
	case l.Country != "":
		return l.Country
	default:
		return ""
	}
}

// GeoLocator resolves a network address to a coarse location with bounded
// latency. Private and loopback ranges resolve locally without a remote call.
type GeoLocator interface {
	Lookup(ctx context.Context, ipAddress string) (*GeoLocation, error)
}
