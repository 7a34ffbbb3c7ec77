package report

import (
	"fmt"
	"math"
	"strings"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Generator
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 400)
	MarginTop    int    // top margin (default: 30)
	MarginRight  int    // right margin (default: 60)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 70)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e0e0e0")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  60,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// ════════════════════════════════════════════════════════════════════
// Line Chart
// ════════════════════════════════════════════════════════════════════

// LineChartSeries represents a named data series for line charts.
type LineChartSeries struct {
	Name   string
	Values []float64
	Color  string // hex color (optional, auto-assigned if empty)
}

// LineChart generates an SVG line chart with one or more series.
// Labels are optional X-axis labels corresponding to data points.
func LineChart(series []LineChartSeries, labels []string, cfg ChartConfig) string {
	if len(series) == 0 {
		return emptySVG(cfg, "No data")
	}

	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if cfg.Title == "" {
		cfg.Title = "Line Chart"
	}

	px, py, pw, ph := cfg.plotArea()

	// Find global min/max
	minVal, maxVal := math.MaxFloat64, -math.MaxFloat64
	maxLen := 0
	for _, s := range series {
		if len(s.Values) > maxLen {
			maxLen = len(s.Values)
		}
		for _, v := range s.Values {
			if !math.IsNaN(v) && v < minVal {
				minVal = v
			}
			if !math.IsNaN(v) && v > maxVal {
				maxVal = v
			}
		}
	}
	if maxLen == 0 {
		return emptySVG(cfg, "No data points")
	}

	vRange := maxVal - minVal
	if vRange < 0.001 {
		vRange = 1
	}
	minVal -= vRange * 0.05
	maxVal += vRange * 0.05
	vRange = maxVal - minVal

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Y-axis grid
	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		val := minVal + vRange*float64(i)/float64(gridLines)
		y := py + ph - int(float64(ph)*float64(i)/float64(gridLines))
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%.2f</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, val))
	}

	// Draw series
	defaultColors := []string{"#2196f3", "#ff9800", "#4caf50", "#e91e63", "#9c27b0", "#00bcd4"}
	for si, s := range series {
		color := s.Color
		if color == "" {
			color = defaultColors[si%len(defaultColors)]
		}

		var pathParts []string
		for i, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			cx := float64(px) + float64(i)*float64(pw)/float64(maxLen-1)
			ratio := (v - minVal) / vRange
			cy := float64(py+ph) - ratio*float64(ph)
			cmd := "L"
			if len(pathParts) == 0 {
				cmd = "M"
			}
			pathParts = append(pathParts, fmt.Sprintf("%s%.1f,%.1f", cmd, cx, cy))
		}
		if len(pathParts) > 1 {
			sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`,
				strings.Join(pathParts, " "), color))
		}

		// Legend
		ly := py + 10 + si*16
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`,
			px+10, ly, px+30, ly, color))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
			px+35, ly+4, cfg.TextColor, escapeXML(s.Name)))
	}

	// X-axis labels
	if len(labels) > 0 {
		interval := maxLen / 6
		if interval < 1 {
			interval = 1
		}
		for i := 0; i < len(labels) && i < maxLen; i += interval {
			cx := float64(px) + float64(i)*float64(pw)/float64(maxLen-1)
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
				cx, py+ph+18, cfg.FontSize-1, cfg.TextColor, escapeXML(labels[i])))
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Bar Chart (Horizontal)
// ════════════════════════════════════════════════════════════════════

// BarItem represents a single bar in a horizontal bar chart.
type BarItem struct {
	Label string
	Value float64
	Color string // optional
}

// HorizontalBarChart generates an SVG horizontal bar chart.
func HorizontalBarChart(items []BarItem, cfg ChartConfig) string {
	if len(items) == 0 {
		return emptySVG(cfg, "No data")
	}

	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	cfg.MarginLeft = 120 // wider for labels
	if cfg.Title == "" {
		cfg.Title = "Comparison"
	}

	px, py, pw, ph := cfg.plotArea()

	maxVal := 0.0
	minVal := 0.0
	for _, item := range items {
		if item.Value > maxVal {
			maxVal = item.Value
		}
		if item.Value < minVal {
			minVal = item.Value
		}
	}

	hasNegative := minVal < 0
	valRange := maxVal - minVal
	if valRange < 0.001 {
		valRange = 1
	}

	barH := float64(ph) / float64(len(items)) * 0.7
	if barH > 30 {
		barH = 30
	}
	gap := (float64(ph) - barH*float64(len(items))) / float64(len(items)+1)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Zero line for mixed positive/negative
	zeroX := float64(px)
	if hasNegative {
		zeroX = float64(px) + (-minVal/valRange)*float64(pw)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="#999" stroke-width="1"/>`,
			zeroX, py, zeroX, py+ph))
	}

	for i, item := range items {
		by := float64(py) + gap + float64(i)*(barH+gap)
		color := item.Color
		if color == "" {
			if item.Value >= 0 {
				color = "#4caf50"
			} else {
				color = "#ef5350"
			}
		}

		var bx, bw float64
		if hasNegative {
			if item.Value >= 0 {
				bx = zeroX
				bw = (item.Value / valRange) * float64(pw)
			} else {
				bw = (-item.Value / valRange) * float64(pw)
				bx = zeroX - bw
			}
		} else {
			bx = float64(px)
			bw = (item.Value / maxVal) * float64(pw)
		}

		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"/>`,
			bx, by, bw, barH, color))

		// Label
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, by+barH/2+4, cfg.FontSize, cfg.TextColor, escapeXML(item.Label)))

		// Value
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="%d" fill="%s">%g</text>`,
			bx+bw+5, by+barH/2+4, cfg.FontSize, cfg.TextColor, item.Value))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Regime Timeline
// ════════════════════════════════════════════════════════════════════

// TimelineSegment is a run of consecutive months in one regime.
type TimelineSegment struct {
	Label  string
	Months int
	Color  string
}

// RegimeTimeline draws consecutive regime runs as a single coloured strip.
func RegimeTimeline(segments []TimelineSegment, cfg ChartConfig) string {
	total := 0
	for _, s := range segments {
		total += s.Months
	}
	if total == 0 {
		return emptySVG(cfg, "No classified months")
	}

	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	cfg.Height = 120
	if cfg.Title == "" {
		cfg.Title = "Regime timeline"
	}
	px, py, pw, ph := cfg.plotArea()

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	x := float64(px)
	for _, s := range segments {
		w := float64(s.Months) / float64(total) * float64(pw)
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%d" width="%.1f" height="%d" fill="%s"><title>%s (%d)</title></rect>`,
			x, py, w, ph, s.Color, escapeXML(s.Label), s.Months))
		x += w
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
