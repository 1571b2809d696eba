package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joshp123/containment/internal/server"
)

func statusCmd(ctx context.Context, args []string) {
	flags := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := flags.Bool("json", false, "print JSON")
	_ = flags.Parse(args)
	out := outputMode{json: *jsonOutput}

	status, err := fetchStatus(ctx, http.DefaultClient, envOrDefault("CONTAINMENT_HTTP_URL", defaultHTTPURL))
	if err != nil {
		fatal("status", err)
	}

	if rest := flags.Args(); len(rest) > 0 {
		zone, err := findZone(status.Zones, strings.Join(rest, " "))
		if err != nil {
			fatal("status", err)
		}
		if out.json {
			out.printJSON(zone)
			return
		}
		out.table(zoneRows([]server.ZoneStatus{zone}))
		return
	}

	if out.json {
		out.printJSON(status)
		return
	}
	out.table(summaryRows(status))
	fmt.Println("")
	out.table(zoneRows(status.Zones))
	if len(status.Alerts) > 0 {
		fmt.Println("")
		for _, alert := range status.Alerts {
			fmt.Printf("! %s\n", alert)
		}
	}
}

func fetchStatus(ctx context.Context, client *http.Client, baseURL string) (server.CycleStatus, error) {
	var status server.CycleStatus
	url := strings.TrimRight(baseURL, "/") + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return status, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return status, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return status, fmt.Errorf("%s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}

func summaryRows(status server.CycleStatus) [][]string {
	ts := time.Unix(0, int64(status.Timestamp*float64(time.Second))).UTC()
	return [][]string{
		{"METRIC", "VALUE"},
		{"device", status.DeviceID},
		{"cycle", fmt.Sprintf("%d", status.Cycle)},
		{"time", ts.Format(time.RFC3339)},
		{"alert_level", status.AlertLevel},
		{"temperature_c", fmt.Sprintf("%.1f C", status.Reference.Temperature)},
		{"humidity_percent", fmt.Sprintf("%.1f %%", status.Reference.Humidity)},
		{"reference_hpa", fmt.Sprintf("%.2f hPa", status.Reference.Pressure/100)},
		{"pm25_ugm3", fmt.Sprintf("%.1f ug/m3", status.AirQuality.PM25)},
		{"pm10_ugm3", fmt.Sprintf("%.1f ug/m3", status.AirQuality.PM10)},
	}
}

func zoneRows(zones []server.ZoneStatus) [][]string {
	rows := [][]string{{"ZONE", "NAME", "DIFF", "LEVEL"}}
	for _, z := range zones {
		rows = append(rows, []string{z.Key, z.Name, fmt.Sprintf("%+.1f Pa", z.Diff), z.Level})
	}
	return rows
}

// findZone matches by key or display name.
func findZone(zones []server.ZoneStatus, input string) (server.ZoneStatus, error) {
	options := make(map[string]string, len(zones)*2)
	for _, z := range zones {
		options[z.Key] = z.Key
		options[z.Name] = z.Key
	}
	key, err := resolveNamedID("zone", input, options)
	if err != nil {
		return server.ZoneStatus{}, err
	}
	for _, z := range zones {
		if z.Key == key {
			return z, nil
		}
	}
	return server.ZoneStatus{}, fmt.Errorf("zone %q not found", input)
}
