package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kailas-cloud/semindex"
)

const maxBarWidth = 40

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginTop(1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("32"))

	contentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Width(100)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	loadingStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)
)

// renderResult renders one result card. content is shown when expanded.
func renderResult(i int, r *semindex.Result, content string, expanded bool) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d. %s", i+1, r.Source.DisplayName())))
	b.WriteString("  ")
	b.WriteString(scoreStyle.Render(fmt.Sprintf("%.2f", r.Similarity)))
	b.WriteString("\n")

	meta := []string{
		fmt.Sprintf("embedding %d", r.ID()),
		fmt.Sprintf("chunk %d", r.Embedding.ChunkIdx),
	}
	if r.Source.SourceType.Name != "" {
		meta = append(meta, r.Source.SourceType.Name)
	}
	if !r.Source.ObjModified.IsZero() {
		meta = append(meta, "modified "+r.Source.ObjModified.Format(time.DateOnly))
	}
	if len(r.Source.Tags) > 0 {
		names := make([]string, len(r.Source.Tags))
		for j, t := range r.Source.Tags {
			names[j] = t.Name
		}
		meta = append(meta, "#"+strings.Join(names, " #"))
	}
	b.WriteString(metaStyle.Render(strings.Join(meta, " · ")))
	if r.Source.URI != "" && r.Source.URI != r.Source.DisplayName() {
		b.WriteString("\n")
		b.WriteString(metaStyle.Render(r.Source.URI))
	}

	if expanded {
		b.WriteString("\n\n")
		b.WriteString(contentStyle.Render(strings.TrimSpace(content)))
	}
	return cardStyle.Render(b.String())
}

// renderResults writes every result of st. Results with loaded content are shown expanded.
func renderResults(w io.Writer, st *semindex.SearchState) {
	if len(st.Results) == 0 {
		fmt.Fprintln(w, metaStyle.Render("No results found"))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d results for %q", len(st.Results), st.Query)))
	for i := range st.Results {
		rs := &st.Results[i]
		fmt.Fprintln(w, renderResult(i, &rs.Result, rs.Content, !rs.Collapsed && rs.HasContent))
	}
}

// renderNotification writes the notification as a one-line status or an error banner.
func renderNotification(w io.Writer, n semindex.Notification) {
	if !n.Visible {
		return
	}
	if !n.IsError {
		fmt.Fprintln(w, loadingStyle.Render(n.Title))
		return
	}
	body := errorStyle.Render(n.Title)
	if n.Message != "" {
		body += "\n" + n.Message
	}
	fmt.Fprintln(w, bannerStyle.Render(body))
}

// histogramBars renders one line per bucket with a bar scaled to the largest count.
func histogramBars(buckets []semindex.HistogramBucket) []string {
	peak := 0
	for _, b := range buckets {
		peak = max(peak, b.Count)
	}
	lines := make([]string, len(buckets))
	for i, b := range buckets {
		width := 0
		if peak > 0 {
			width = b.Count * maxBarWidth / peak
		}
		if b.Count > 0 && width == 0 {
			width = 1
		}
		lines[i] = fmt.Sprintf("%s %s %d",
			b.Bucket.Format("2006-01"), barStyle.Render(strings.Repeat("█", width)), b.Count)
	}
	return lines
}

// facetLine renders one facet entry with its id for use with --tag / --source-type.
func facetLine(id int, name string, count int) string {
	return fmt.Sprintf("%s %s %s",
		metaStyle.Render(fmt.Sprintf("[%d]", id)), name, scoreStyle.Render(fmt.Sprintf("(%d)", count)))
}
