package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/pkg/utils"
)

// LocatorService resolves the nearest police station and hospital around an
// accident site via the Overpass point-of-interest API.
type LocatorService struct {
	endpoint     string
	radiusMeters int
	httpClient   *http.Client
	attempts     uint64
	backoff      time.Duration
}

// NewLocatorService creates a new emergency-service locator
func NewLocatorService(endpoint string, radiusMeters int, attempts uint64, backoff time.Duration) *LocatorService {
	if radiusMeters <= 0 {
		radiusMeters = 5000
	}
	if attempts == 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &LocatorService{
		endpoint:     endpoint,
		radiusMeters: radiusMeters,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		attempts: attempts,
		backoff:  backoff,
	}
}

type overpassResponse struct {
	Elements []struct {
		Lat  float64           `json:"lat"`
		Lon  float64           `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// FindNearestServices queries amenities tagged police or hospital within
// the search radius and reduces each category to the closest entry by
// great-circle distance. Either result may be nil; absence is a valid
// report state. Failures log and return (nil, nil), never an error.
func (s *LocatorService) FindNearestServices(ctx context.Context, lat, lon float64) (police, hospital *domain.ServiceLocation) {
	query := fmt.Sprintf(`[out:json];
(
  node["amenity"="police"](around:%d,%f,%f);
  node["amenity"="hospital"](around:%d,%f,%f);
);
out body;`, s.radiusMeters, lat, lon, s.radiusMeters, lat, lon)

	var data overpassResponse
	backoff := retry.WithMaxRetries(s.attempts, retry.NewExponential(s.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		form := url.Values{}
		form.Set("data", query)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return retry.RetryableError(fmt.Errorf("locator: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("locator: status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&data)
	})
	if err != nil {
		log.Printf("emergency service lookup failed: %v", err)
		return nil, nil
	}

	for _, el := range data.Elements {
		if el.Tags == nil {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			name = "Unnamed"
		}
		loc := domain.ServiceLocation{
			Name:       name,
			Latitude:   el.Lat,
			Longitude:  el.Lon,
			DistanceKm: utils.Haversine(lat, lon, el.Lat, el.Lon),
		}
		switch el.Tags["amenity"] {
		case "police":
			loc.Kind = domain.ServicePolice
			if police == nil || loc.DistanceKm < police.DistanceKm {
				p := loc
				police = &p
			}
		case "hospital":
			loc.Kind = domain.ServiceHospital
			if hospital == nil || loc.DistanceKm < hospital.DistanceKm {
				h := loc
				hospital = &h
			}
		}
	}
	return police, hospital
}
