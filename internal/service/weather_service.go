package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/roadwatch/backend/internal/domain"
)

// WeatherService handles weather data fetching
type WeatherService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	attempts   uint64
	backoff    time.Duration
}

// NewWeatherService creates a new weather service
func NewWeatherService(apiKey, baseURL string, attempts uint64, backoff time.Duration) *WeatherService {
	if attempts == 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &WeatherService{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		attempts: attempts,
		backoff:  backoff,
	}
}

// OpenWeatherResponse represents the OpenWeatherMap API response
type OpenWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// GetWeather fetches current conditions at the given coordinates. Any
// failure degrades to the "unknown" placeholder; the incident response is
// never blocked on weather.
func (s *WeatherService) GetWeather(ctx context.Context, lat, lon float64) domain.Weather {
	if s.apiKey == "" {
		return domain.UnknownWeather()
	}

	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))
	query.Set("appid", s.apiKey)
	query.Set("units", "metric")
	reqURL := fmt.Sprintf("%s?%s", s.baseURL, query.Encode())

	var owResp OpenWeatherResponse
	backoff := retry.WithMaxRetries(s.attempts, retry.NewExponential(s.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("weather: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("weather: status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&owResp)
	})
	if err != nil {
		log.Printf("weather lookup failed, using placeholder: %v", err)
		return domain.UnknownWeather()
	}

	weather := domain.Weather{
		Temperature: owResp.Main.Temp,
		Humidity:    owResp.Main.Humidity,
		WindSpeed:   owResp.Wind.Speed,
		Timestamp:   time.Now(),
	}
	if len(owResp.Weather) > 0 {
		weather.Description = owResp.Weather[0].Description
	} else {
		weather.Description = "unknown"
	}
	return weather
}
