// Package console prints a human-readable report for every cycle.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/joshp123/containment/internal/monitor"
)

// Reporter writes a per-cycle summary to w. It is a monitor.Observer.
type Reporter struct {
	thresholds monitor.Thresholds

	mu sync.Mutex
	w  io.Writer

	header   lipgloss.Style
	label    lipgloss.Style
	dim      lipgloss.Style
	normal   lipgloss.Style
	warning  lipgloss.Style
	critical lipgloss.Style
}

func NewReporter(w io.Writer, thresholds monitor.Thresholds) *Reporter {
	r := lipgloss.NewRenderer(w)
	return &Reporter{
		thresholds: thresholds,
		w:          w,
		header:     r.NewStyle().Bold(true),
		label:      r.NewStyle().Width(12),
		dim:        r.NewStyle().Foreground(lipgloss.Color("245")),
		normal:     r.NewStyle().Foreground(lipgloss.Color("78")),
		warning:    r.NewStyle().Foreground(lipgloss.Color("220")),
		critical:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

func (r *Reporter) CycleCompleted(_ context.Context, cycle monitor.MeasurementCycle, _ monitor.Telemetry) {
	r.write(r.Render(cycle))
}

func (r *Reporter) CycleAbandoned(index int, err error) {
	r.write(r.warning.Render(fmt.Sprintf("cycle %d skipped: %v", index, err)) + "\n")
}

func (r *Reporter) CycleFailed(index int, err error) {
	r.write(r.critical.Render(fmt.Sprintf("cycle %d failed: %v", index, err)) + "\n")
}

func (r *Reporter) SendFailed(index int, err error) {
	r.write(r.dim.Render(fmt.Sprintf("cycle %d telemetry not delivered: %v", index, err)) + "\n")
}

// Render formats one completed cycle.
func (r *Reporter) Render(cycle monitor.MeasurementCycle) string {
	var b strings.Builder

	b.WriteString(r.header.Render(fmt.Sprintf("cycle %d", cycle.Index)))
	b.WriteString("\n")

	ref := cycle.Reference
	fmt.Fprintf(&b, "%s%.1f C  %.1f %%RH  %.2f hPa\n",
		r.label.Render("reference"), ref.Temperature, ref.Humidity, ref.Pressure/100)

	for i, d := range cycle.Differentials {
		tier := monitor.Normal
		if i < len(cycle.ZoneVerdicts) {
			tier = cycle.ZoneVerdicts[i].Tier
		}
		fmt.Fprintf(&b, "%s%+7.1f Pa  %s\n",
			r.label.Render(d.Zone.Name), d.Diff, r.style(tier).Render(r.zoneStatus(tier, d.Diff)))
	}

	aq := cycle.AirQuality
	fmt.Fprintf(&b, "%sPM2.5 %.1f  PM10 %.1f ug/m3  %s\n",
		r.label.Render("particulate"), aq.PM25, aq.PM10, r.style(cycle.AirVerdict.Tier).Render(cycle.AirVerdict.Tier.String()))

	level := cycle.Event.Level
	fmt.Fprintf(&b, "%s%s\n", r.label.Render("alert level"), r.style(level).Render(strings.ToUpper(level.String())))
	if len(cycle.Event.Messages) == 0 {
		b.WriteString(r.dim.Render("all values within range"))
		b.WriteString("\n")
	}
	for _, msg := range cycle.Event.Messages {
		b.WriteString("  ! ")
		b.WriteString(r.style(level).Render(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Reporter) zoneStatus(tier monitor.Severity, diff float64) string {
	switch {
	case tier == monitor.Critical:
		return "no vacuum"
	case tier == monitor.Warning:
		return "weak vacuum"
	case r.thresholds.IsStrongVacuum(diff):
		return "strong vacuum"
	default:
		return "ok"
	}
}

func (r *Reporter) style(tier monitor.Severity) lipgloss.Style {
	switch tier {
	case monitor.Critical:
		return r.critical
	case monitor.Warning:
		return r.warning
	default:
		return r.normal
	}
}

func (r *Reporter) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.w, s)
}
