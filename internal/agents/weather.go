package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/pkg/models"
)

// WeatherService reads current conditions and forecasts from WeatherAPI.
// Without an API key it serves fixed mock data so the rest of the system
// keeps working.
type WeatherService struct {
	cfg    config.WeatherConfig
	client *http.Client
}

// NewWeatherService creates the weather collaborator.
func NewWeatherService(cfg config.WeatherConfig) *WeatherService {
	return &WeatherService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Current returns current conditions.
func (w *WeatherService) Current(ctx context.Context) (*models.WeatherReport, error) {
	if w.cfg.APIKey == "" {
		return mockWeather(), nil
	}

	u := fmt.Sprintf("%s/current.json?key=%s&q=%s&aqi=no",
		w.cfg.Endpoint, w.cfg.APIKey, url.QueryEscape(w.cfg.Location))

	var payload struct {
		Location struct {
			Name    string `json:"name"`
			Country string `json:"country"`
		} `json:"location"`
		Current struct {
			TempC       float64 `json:"temp_c"`
			FeelsLikeC  float64 `json:"feelslike_c"`
			Humidity    int     `json:"humidity"`
			WindKPH     float64 `json:"wind_kph"`
			UV          float64 `json:"uv"`
			LastUpdated string  `json:"last_updated"`
			Condition   struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}
	if err := w.getJSON(ctx, u, &payload); err != nil {
		log.Error().Err(err).Msg("Weather fetch failed")
		return nil, err
	}

	return &models.WeatherReport{
		Location:    payload.Location.Name + ", " + payload.Location.Country,
		TempC:       payload.Current.TempC,
		FeelsLikeC:  payload.Current.FeelsLikeC,
		Condition:   payload.Current.Condition.Text,
		Humidity:    payload.Current.Humidity,
		WindKPH:     payload.Current.WindKPH,
		UVIndex:     payload.Current.UV,
		LastUpdated: payload.Current.LastUpdated,
	}, nil
}

// Forecast returns up to days of forecast data.
func (w *WeatherService) Forecast(ctx context.Context, days int) ([]models.ForecastDay, error) {
	if days <= 0 {
		days = 3
	}
	if w.cfg.APIKey == "" {
		out := make([]models.ForecastDay, days)
		for i := range out {
			out[i] = mockForecastDay()
		}
		return out, nil
	}

	u := fmt.Sprintf("%s/forecast.json?key=%s&q=%s&days=%d&aqi=no",
		w.cfg.Endpoint, w.cfg.APIKey, url.QueryEscape(w.cfg.Location), days)

	var payload struct {
		Forecast struct {
			ForecastDay []struct {
				Date string `json:"date"`
				Day  struct {
					MaxTempC     float64 `json:"maxtemp_c"`
					MinTempC     float64 `json:"mintemp_c"`
					ChanceOfRain int     `json:"daily_chance_of_rain"`
					Condition    struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"day"`
				Astro struct {
					Sunrise string `json:"sunrise"`
					Sunset  string `json:"sunset"`
				} `json:"astro"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := w.getJSON(ctx, u, &payload); err != nil {
		log.Error().Err(err).Msg("Forecast fetch failed")
		return nil, err
	}

	out := make([]models.ForecastDay, 0, len(payload.Forecast.ForecastDay))
	for _, d := range payload.Forecast.ForecastDay {
		out = append(out, models.ForecastDay{
			Date:         d.Date,
			MaxTempC:     d.Day.MaxTempC,
			MinTempC:     d.Day.MinTempC,
			Condition:    d.Day.Condition.Text,
			ChanceOfRain: d.Day.ChanceOfRain,
			Sunrise:      d.Astro.Sunrise,
			Sunset:       d.Astro.Sunset,
		})
	}
	return out, nil
}

// OutdoorRecommendation says whether conditions suit outdoor scheduling:
// 18-32°C and no rain or storm.
func (w *WeatherService) OutdoorRecommendation(ctx context.Context) *models.OutdoorRecommendation {
	weather, err := w.Current(ctx)
	if err != nil {
		return &models.OutdoorRecommendation{
			Recommended: false,
			Reason:      "Unable to fetch weather data",
		}
	}

	condition := strings.ToLower(weather.Condition)
	goodTemp := weather.TempC >= 18 && weather.TempC <= 32
	noRain := !strings.Contains(condition, "rain") && !strings.Contains(condition, "storm")

	switch {
	case goodTemp && noRain:
		return &models.OutdoorRecommendation{
			Recommended: true,
			Reason:      fmt.Sprintf("Perfect weather! %.0f°C and %s", weather.TempC, weather.Condition),
		}
	case !goodTemp:
		kind := "cold"
		if weather.TempC > 32 {
			kind = "hot"
		}
		return &models.OutdoorRecommendation{
			Recommended: false,
			Reason:      fmt.Sprintf("Temperature too %s (%.0f°C)", kind, weather.TempC),
		}
	default:
		return &models.OutdoorRecommendation{
			Recommended: false,
			Reason:      fmt.Sprintf("Weather not ideal: %s", weather.Condition),
		}
	}
}

func (w *WeatherService) getJSON(ctx context.Context, u string, out any) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("weather: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("weather: status %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("weather: decode response: %w", err))
		}
		return nil
	}
	return backoff.Retry(op, bo)
}

func mockWeather() *models.WeatherReport {
	return &models.WeatherReport{
		Location:    "Mumbai, India",
		TempC:       28,
		FeelsLikeC:  30,
		Condition:   "Partly Cloudy",
		Humidity:    65,
		WindKPH:     15,
		UVIndex:     6,
		LastUpdated: time.Now().Format("2006-01-02 15:04"),
	}
}

func mockForecastDay() models.ForecastDay {
	return models.ForecastDay{
		Date:         time.Now().Format("2006-01-02"),
		MaxTempC:     30,
		MinTempC:     22,
		Condition:    "Sunny",
		ChanceOfRain: 10,
		Sunrise:      "06:45 AM",
		Sunset:       "06:30 PM",
	}
}
