// Package weather fetches current conditions and tomorrow's forecast from
// the OpenWeatherMap API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sony/gobreaker"
)

// requestTimeout bounds every provider call.
const requestTimeout = 5 * time.Second


// Current is the current-conditions snapshot.
type Current struct {
	Icon        string `json:"icon"`
	Temp        int    `json:"temp"`
	FeelsLike   int    `json:"feels_like"`
	Description string `json:"description"`
	Humidity    int    `json:"humidity"`
	Location    string `json:"location"`
}

// Forecast summarises tomorrow.
type Forecast struct {
	Icon        string `json:"icon"`
	Temp        int    `json:"temp"` // representative slot temperature
	TempMin     int    `json:"temp_min"`
	TempMax     int    `json:"temp_max"`
	Description string `json:"description"`
	Humidity    int    `json:"humidity"`
}

// Request identifies what to ask the provider for.
type Request struct {
	City     string
	APIKey   string
	Language string
}

// Client talks to the provider through a circuit breaker so an unreachable
// provider fails fast.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "weather",
			MaxRequests: 1,
			Timeout:     2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		now: time.Now,
	}
}

// BreakerState exposes the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

type apiCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type apiMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  int     `json:"humidity"`
}

type currentResponse struct {
	Weather []apiCondition `json:"weather"`
	Main    apiMain        `json:"main"`
	Name    string         `json:"name"`
}

type forecastSlot struct {
	Dt      int64          `json:"dt"`
	Main    apiMain        `json:"main"`
	Weather []apiCondition `json:"weather"`
}

type forecastResponse struct {
	List []forecastSlot `json:"list"`
}

// Current fetches current conditions.
func (c *Client) Current(ctx context.Context, req Request) (*Current, error) {
	var resp currentResponse
	if err := c.get(ctx, "weather", req, nil, &resp); err != nil {
		return nil, err
	}

	if len(resp.Weather) == 0 {
		return nil, fmt.Errorf("weather response has no conditions")
	}

	location := resp.Name
	if location == "" {
		location = req.City
	}

	return &Current{
		Icon:        Icon(resp.Weather[0].Main),
		Temp:        round(resp.Main.Temp),
		FeelsLike:   round(resp.Main.FeelsLike),
		Description: capitalize(resp.Weather[0].Description),
		Humidity:    resp.Main.Humidity,
		Location:    location,
	}, nil
}

// Tomorrow fetches the 5-day/3-hour forecast and summarises tomorrow. The
// forecast is nil when no slot falls on tomorrow.
func (c *Client) Tomorrow(ctx context.Context, req Request) (*Forecast, error) {
	var resp forecastResponse
	if err := c.get(ctx, "forecast", req, url.Values{"cnt": {"16"}}, &resp); err != nil {
		return nil, err
	}

	return summarizeTomorrow(resp.List, c.now())
}

// summarizeTomorrow selects tomorrow's slots in now's location. The
// representative slot is the one between 11:00 and 14:00 closest to midday,
// else the first slot of the day; min/max span all of the day's slots. It
// returns nil without an error when no slot falls on tomorrow.
func summarizeTomorrow(slots []forecastSlot, now time.Time) (*Forecast, error) {
	loc := now.Location()
	ty, tm, td := now.AddDate(0, 0, 1).Date()

	var day []forecastSlot
	for _, s := range slots {
		y, m, d := time.Unix(s.Dt, 0).In(loc).Date()
		if y == ty && m == tm && d == td {
			day = append(day, s)
		}
	}
	if len(day) == 0 {
		return nil, nil
	}

	rep := day[0]
	bestDistance := math.MaxInt
	minTemp, maxTemp := day[0].Main.Temp, day[0].Main.Temp
	for _, s := range day {
		minTemp = math.Min(minTemp, s.Main.Temp)
		maxTemp = math.Max(maxTemp, s.Main.Temp)

		t := time.Unix(s.Dt, 0).In(loc)
		if t.Hour() < 11 || t.Hour() > 14 {
			continue
		}
		distance := abs(t.Hour()*60 + t.Minute() - 12*60)
		if distance < bestDistance {
			bestDistance = distance
			rep = s
		}
	}

	f := &Forecast{
		Temp:     round(rep.Main.Temp),
		TempMin:  round(minTemp),
		TempMax:  round(maxTemp),
		Humidity: rep.Main.Humidity,
		Icon:     Icon(""),
	}
	if len(rep.Weather) > 0 {
		f.Icon = Icon(rep.Weather[0].Main)
		f.Description = capitalize(rep.Weather[0].Description)
	}
	return f, nil
}

// get performs one provider call through the circuit breaker.
func (c *Client) get(ctx context.Context, endpoint string, req Request, extra url.Values, out any) error {
	q := url.Values{
		"q":     {req.City},
		"appid": {req.APIKey},
		"units": {"metric"},
		"lang":  {req.Language},
	}
	for k, v := range extra {
		q[k] = v
	}
	target := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, q.Encode())

	_, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s request: %w", endpoint, err)
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s request returned %s", endpoint, resp.Status)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}
		return nil, nil
	})
	return err
}

// round rounds half to even: 2.5 -> 2, -0.5 -> 0.
func round(f float64) int {
	return int(math.RoundToEven(f))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
