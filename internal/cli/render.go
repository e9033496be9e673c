package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"StockCharts/internal/domain/models"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Width(17)

	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func title(m models.SymbolMeta) string {
	var extra []string
	if m.Exchange != "" {
		extra = append(extra, m.Exchange)
	}
	if m.Currency != "" {
		extra = append(extra, m.Currency)
	}
	t := fmt.Sprintf("%s  %s", m.Symbol, m.DisplayName())
	if len(extra) > 0 {
		t += " (" + strings.Join(extra, ", ") + ")"
	}
	return titleStyle.Render(t)
}

// RenderChart summarizes a bundle for the terminal: the window, the last
// close and the latest value of every indicator line.
func RenderChart(b *models.ChartBundle) string {
	rows := []string{title(b.Meta)}

	lookback := fmt.Sprintf("%d bars", b.Lookback)
	if b.Lookback < 0 {
		lookback = "all"
	}
	rows = append(rows, row("range", fmt.Sprintf("%s (%s, %s scope)", b.Range, lookback, b.Scope)))

	if len(b.Window) == 0 {
		rows = append(rows, dimStyle.Render("no bars in window"))
		return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	first, last := b.Window[0], b.Window[len(b.Window)-1]
	rows = append(rows,
		row("window", fmt.Sprintf("%s → %s (%d bars)", first.Time.Format("2006-01-02"), last.Time.Format("2006-01-02"), len(b.Window))),
		row("last close", fmt.Sprintf("%.2f %s", last.Close, change(first.Close, last.Close))),
	)
	if b.Axes != nil {
		rows = append(rows,
			row("price axis", fmt.Sprintf("%.2f .. %.2f", b.Axes.PriceMin, b.Axes.PriceMax)),
			row("volume axis", fmt.Sprintf("0 .. %.0f", b.Axes.VolumeMax)),
		)
	}

	for _, ind := range sortedIndicators(b.Indicators) {
		s := b.Indicators[ind]
		if s.Empty() {
			rows = append(rows, row(string(ind), dimStyle.Render("not enough data")))
			continue
		}
		vals := make([]string, 0, len(s.Lines))
		for _, l := range s.Lines {
			if len(l.Points) == 0 {
				continue
			}
			vals = append(vals, fmt.Sprintf("%s=%.2f", l.Name, l.Points[len(l.Points)-1].Value))
		}
		rows = append(rows, row(string(ind), strings.Join(vals, "  ")))
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func change(from, to float64) string {
	if from == 0 {
		return ""
	}
	pct := (to - from) / from * 100
	s := fmt.Sprintf("%+.2f%%", pct)
	if pct < 0 {
		return downStyle.Render(s)
	}
	return upStyle.Render(s)
}

func sortedIndicators(m map[models.Indicator]models.IndicatorSeries) []models.Indicator {
	set := make(models.IndicatorSet, len(m))
	for ind := range m {
		set[ind] = struct{}{}
	}
	return set.List()
}

// RenderRanges lists selectors and their lookbacks.
func RenderRanges(ranges []models.RangeInfo) string {
	rows := []string{titleStyle.Render("Range selectors")}
	for _, r := range ranges {
		v := fmt.Sprintf("%d weekdays", r.Lookback)
		if r.Unbounded {
			v = "full history"
		}
		rows = append(rows, row(r.Selector, v))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// RenderIndicators lists indicators with their configured parameters.
func RenderIndicators(infos []models.IndicatorInfo) string {
	rows := []string{titleStyle.Render("Indicators")}
	for _, info := range infos {
		keys := make([]string, 0, len(info.Params))
		for k := range info.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		params := make([]string, 0, len(keys))
		for _, k := range keys {
			params = append(params, fmt.Sprintf("%s=%g", k, info.Params[k]))
		}
		rows = append(rows, row(string(info.Name), strings.Join(info.Lines, ",")+"  "+dimStyle.Render(strings.Join(params, " "))))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
