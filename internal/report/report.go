// Package report renders an aggregated manifest for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"dailymanifest/internal/aggregate"
	"dailymanifest/internal/model"
)

// Options tune the rendered report.
type Options struct {
	// Guests lists every roster line under its record.
	Guests bool
	// TimeLayout formats start and end times. Defaults to "15:04".
	TimeLayout string
}

type styles struct {
	title    lipgloss.Style
	day      lipgloss.Style
	dim      lipgloss.Style
	warn     lipgloss.Style
	err      lipgloss.Style
	success  lipgloss.Style
	name     lipgloss.Style
	status   map[model.Status]lipgloss.Style
	renderer *lipgloss.Renderer
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		day:     r.NewStyle().Bold(true).Underline(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("8")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		err:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		name:    r.NewStyle().Width(18),
		status: map[model.Status]lipgloss.Style{
			model.StatusCompleted:  r.NewStyle().Width(12).Foreground(lipgloss.Color("8")),
			model.StatusInProgress: r.NewStyle().Width(12).Foreground(lipgloss.Color("10")),
			model.StatusUpcoming:   r.NewStyle().Width(12).Foreground(lipgloss.Color("14")),
		},
		renderer: r,
	}
}

// Render writes res as a day-by-day manifest.
func Render(w io.Writer, res aggregate.Result, opts Options) error {
	if opts.TimeLayout == "" {
		opts.TimeLayout = "15:04"
	}
	st := newStyles(w)

	var b strings.Builder
	b.WriteString(st.title.Render("Daily Manifest"))
	b.WriteString(st.dim.Render(fmt.Sprintf("  type: %s  status: %s", filterLabel(res.Filter.Type, model.AllTypes), filterLabel(res.Filter.Status, model.AllStatuses))))
	b.WriteString("\n")

	for _, day := range res.Days {
		b.WriteString("\n")
		b.WriteString(st.day.Render(day.Date.Format("Mon Jan 2 2006")))
		b.WriteString("  ")
		b.WriteString(st.summary(day.Stats))
		b.WriteString("\n")

		if len(day.Records) == 0 {
			b.WriteString(st.dim.Render("  no activities"))
			b.WriteString("\n")
			continue
		}
		for _, rec := range day.Records {
			st.record(&b, rec, opts)
		}
	}

	b.WriteString("\n")
	b.WriteString(st.title.Render("Totals"))
	b.WriteString("  ")
	b.WriteString(st.summary(res.Totals))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (st styles) summary(s model.DayStats) string {
	parts := []string{
		fmt.Sprintf("%d guests", s.TotalGuests),
		st.success.Render(fmt.Sprintf("%d active now", s.ActiveNow)),
	}
	overbooked := fmt.Sprintf("%d overbooked", s.CapacityIssues)
	if s.CapacityIssues > 0 {
		overbooked = st.err.Render(overbooked)
	}
	cancelled := fmt.Sprintf("%d with cancellations", s.Cancellations)
	if s.Cancellations > 0 {
		cancelled = st.warn.Render(cancelled)
	}
	parts = append(parts, overbooked, cancelled)
	return strings.Join(parts, st.dim.Render(" · "))
}

func (st styles) record(b *strings.Builder, rec model.Record, opts Options) {
	name := rec.DisplayName()
	swatch := "■"
	if rec.Classification != nil {
		swatch = st.renderer.NewStyle().Foreground(lipgloss.Color(rec.Classification.Color)).Render(swatch)
	} else {
		name = rec.Title
		swatch = st.dim.Render(swatch)
	}

	span := rec.Start.Format(opts.TimeLayout) + "-" + rec.End.Format(opts.TimeLayout)
	statusStyle, ok := st.status[rec.Status]
	if !ok {
		statusStyle = st.dim
	}

	fmt.Fprintf(b, "  %s %s  %s %s  %s", span, swatch, st.name.Render(name), statusStyle.Render(string(rec.Status)), guestLabel(rec.Roster))
	if rec.CurrentCapacity != nil || rec.MaxCapacity != nil {
		b.WriteString("  " + capacityLabel(rec))
		if rec.Overbooked() {
			b.WriteString(" " + st.err.Render("OVERBOOKED"))
		}
	}
	b.WriteString("\n")

	if !opts.Guests {
		return
	}
	for _, g := range rec.Roster.Guests {
		line := fmt.Sprintf("      %dx %s", g.Count, g.Name)
		if g.IsCancelled {
			line = st.warn.Render(line + " (cancelled)")
		}
		b.WriteString(line + "\n")
	}
}

func guestLabel(r model.Roster) string {
	if r.Total == r.Active {
		return fmt.Sprintf("%d guests", r.Total)
	}
	return fmt.Sprintf("%d guests (%d active)", r.Total, r.Active)
}

func capacityLabel(rec model.Record) string {
	v := func(p *int) string {
		if p == nil {
			return "?"
		}
		return fmt.Sprint(*p)
	}
	return v(rec.CurrentCapacity) + "/" + v(rec.MaxCapacity)
}

func filterLabel(v, all string) string {
	if v == "" || v == model.FilterAll {
		return all
	}
	return v
}

// DateRange formats the first and last day of res, or "" when empty.
func DateRange(res aggregate.Result) string {
	if len(res.Days) == 0 {
		return ""
	}
	first := res.Days[0].Date
	last := res.Days[len(res.Days)-1].Date
	if first.Equal(last) {
		return first.Format(time.DateOnly)
	}
	return first.Format(time.DateOnly) + " to " + last.Format(time.DateOnly)
}
