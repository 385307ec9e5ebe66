package integrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/your-org/visora/internal/config"
)

var ErrNoConditions = errors.New("no current conditions in weather report")

// Conditions is the current weather at one place, in metric units.
type Conditions struct {
	City          string
	TempC         string
	FeelsLikeC    string
	Description   string
	Humidity      string
	WindKmph      string
	WindDirection string
}

// Summary renders the conditions as a few short spoken lines.
func (c *Conditions) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current weather in %s:\n", c.City)
	fmt.Fprintf(&b, "- Temperature: %s°C (feels like %s°C)\n", c.TempC, c.FeelsLikeC)
	fmt.Fprintf(&b, "- Conditions: %s\n", c.Description)
	fmt.Fprintf(&b, "- Humidity: %s%%\n", c.Humidity)
	fmt.Fprintf(&b, "- Wind: %s km/h from %s", c.WindKmph, c.WindDirection)
	return b.String()
}

// wttr.in j1 format, only the fields we read.
type wttrReport struct {
	CurrentCondition []struct {
		TempC          string `json:"temp_C"`
		FeelsLikeC     string `json:"FeelsLikeC"`
		Humidity       string `json:"humidity"`
		WindspeedKmph  string `json:"windspeedKmph"`
		Winddir16Point string `json:"winddir16Point"`
		WeatherDesc    []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
}

type Weather struct {
	baseURL string
	client  *http.Client
}

func NewWeather(cfg config.WeatherConfig) *Weather {
	return &Weather{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  newHTTPClient(cfg.Timeout),
	}
}

// Current fetches the current conditions for city.
func (w *Weather) Current(ctx context.Context, city string) (*Conditions, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, errors.New("city is required")
	}

	var report wttrReport
	endpoint := fmt.Sprintf("%s/%s?format=j1", w.baseURL, url.PathEscape(city))
	if err := getJSON(ctx, w.client, "weather", "current", endpoint, &report); err != nil {
		return nil, err
	}
	if len(report.CurrentCondition) == 0 {
		return nil, ErrNoConditions
	}

	cur := report.CurrentCondition[0]
	c := &Conditions{
		City:          city,
		TempC:         cur.TempC,
		FeelsLikeC:    cur.FeelsLikeC,
		Humidity:      cur.Humidity,
		WindKmph:      cur.WindspeedKmph,
		WindDirection: cur.Winddir16Point,
	}
	if len(cur.WeatherDesc) > 0 {
		c.Description = strings.TrimSpace(cur.WeatherDesc[0].Value)
	}

	slog.Info("weather retrieved", "city", city)
	return c, nil
}
