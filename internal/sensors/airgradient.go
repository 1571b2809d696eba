package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joshp123/containment/internal/monitor"
)

const (
	requestTimeout = 10 * time.Second
)

// AirGradient reads particulate values from an AirGradient monitor's local API.
type AirGradient struct {
	baseURL    string
	httpClient *http.Client
}

// currentMeasures is the subset of /measures/current we consume.
type currentMeasures struct {
	SerialNo        string   `json:"serialno"`
	PM02            *float64 `json:"pm02"`
	PM10            *float64 `json:"pm10"`
	PM02Compensated *float64 `json:"pm02Compensated"`
}

func NewAirGradient(baseURL string, httpClient *http.Client) (*AirGradient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("airgradient base_url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &AirGradient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// AirQuality returns the current PM2.5 and PM10 readings. The compensated
// PM2.5 value is preferred when the device reports one. A device that has no
// particulate data yet yields monitor.ErrNoReading.
func (a *AirGradient) AirQuality(ctx context.Context) (monitor.AirQualityReading, error) {
	var current currentMeasures
	if err := a.getJSON(ctx, "/measures/current", &current); err != nil {
		return monitor.AirQualityReading{}, err
	}

	pm25 := current.PM02Compensated
	if pm25 == nil {
		pm25 = current.PM02
	}
	if pm25 == nil || current.PM10 == nil {
		return monitor.AirQualityReading{}, fmt.Errorf("airgradient %s: %w", current.SerialNo, monitor.ErrNoReading)
	}
	return monitor.AirQualityReading{PM25: *pm25, PM10: *current.PM10}, nil
}

func (a *AirGradient) getJSON(ctx context.Context, path string, dest any) error {
	endpoint, err := url.JoinPath(a.baseURL, path)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request %s: %s", endpoint, strings.TrimSpace(string(payload)))
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
