package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

// ErrAddressNotFound is returned when the provider has no match for the text.
var ErrAddressNotFound = errors.New("address not found")

// Suggestion is a candidate address offered when free text does not geocode cleanly.
type Suggestion struct {
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	PlaceID  string      `json:"place_id"`
	Position types.Point `json:"position"`
}

// Geocoder handles address resolution against the Google Maps APIs.
type Geocoder struct {
	client   *maps.Client
	region   string
	language string
}

// NewGeocoder creates a Geocoder with the given API Key. Extra options are
// passed to the maps client (tests point it at a local server).
func NewGeocoder(apiKey, region, language string, opts ...maps.ClientOption) (*Geocoder, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client, region: region, language: language}, nil
}

// Geocode resolves an address to coordinates and the provider's formatted address.
func (g *Geocoder) Geocode(ctx context.Context, address string) (types.Point, string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return types.Point{}, "", ErrAddressNotFound
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Region:   g.region,
		Language: g.language,
	})
	if err != nil {
		if isZeroResults(err) {
			return types.Point{}, "", ErrAddressNotFound
		}
		return types.Point{}, "", fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, "", ErrAddressNotFound
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, results[0].FormattedAddress, nil
}

// ReverseGeocode returns the best formatted address for a coordinate.
func (g *Geocoder) ReverseGeocode(ctx context.Context, p types.Point) (string, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
		Language: g.language,
	})
	if err != nil {
		if isZeroResults(err) {
			return "", ErrAddressNotFound
		}
		return "", fmt.Errorf("reverse geocoding api error: %w", err)
	}
	if len(results) == 0 || results[0].FormattedAddress == "" {
		return "", ErrAddressNotFound
	}
	return results[0].FormattedAddress, nil
}

// Suggest searches places matching query, biased towards near when given.
func (g *Geocoder) Suggest(ctx context.Context, query string, near *types.Point) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Suggestion{}, nil
	}
	r := &maps.TextSearchRequest{
		Query:    query,
		Language: g.language,
		Region:   g.region,
	}
	if near != nil {
		r.Location = &maps.LatLng{Lat: near.Lat, Lng: near.Lng}
		r.Radius = 20000
	}

	resp, err := g.client.TextSearch(ctx, r)
	if err != nil {
		if isZeroResults(err) {
			return []Suggestion{}, nil
		}
		return nil, fmt.Errorf("places api error: %w", err)
	}

	out := make([]Suggestion, 0, len(resp.Results))
	for _, result := range resp.Results {
		out = append(out, Suggestion{
			Name:     result.Name,
			Address:  result.FormattedAddress,
			PlaceID:  result.PlaceID,
			Position: types.Point{Lat: result.Geometry.Location.Lat, Lng: result.Geometry.Location.Lng},
		})
		if len(out) >= 5 {
			break
		}
	}
	return out, nil
}

func isZeroResults(err error) bool {
	return strings.Contains(err.Error(), "ZERO_RESULTS")
}
