package report

// ReportTemplate is the HTML template for the run report.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; margin-bottom: 4px; color: var(--accent); }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .header { border-bottom: 3px solid var(--accent); padding-bottom: 12px; margin-bottom: 16px; }
  table { width: 100%; border-collapse: collapse; font-size: 0.85rem; margin: 8px 0; }
  th, td { padding: 4px 8px; border-bottom: 1px solid var(--border); text-align: right; }
  th:first-child, td:first-child, td.label { text-align: left; }
  th { background: var(--section-bg); }
  .grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 8px; }
  .metric { background: var(--section-bg); border: 1px solid var(--border); border-radius: 6px; padding: 8px; }
  .metric .label { color: var(--muted); font-size: 0.75rem; }
  .metric .value { font-weight: 700; font-size: 1.1rem; }
  .chart-container { margin: 12px 0; }
  .omitted { color: var(--red); }
</style>
</head>
<body>

<div class="header">
  <h1>{{.Title}}</h1>
  <p class="muted">Run {{.RunID}} · {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}</p>
</div>

{{with .Classification}}
<h2>Regime classification since {{.Since}}</h2>
{{if .Latest}}<p>Latest regime: <strong>{{.Latest}}</strong> ({{.LatestDate}}){{if .Suggested}} · suggested allocation: {{weights .Suggested}}{{end}}</p>{{end}}
<p class="muted">{{.TotalMonths}} classified months in total</p>
{{if $.TimelineChart}}<div class="chart-container">{{$.TimelineChart}}</div>{{end}}
{{if $.CountChart}}<div class="chart-container">{{$.CountChart}}</div>{{end}}
<table>
  <tr><th>Date</th><th>GDP</th><th>Inflation</th><th>Curve</th><th>M2</th><th>Velocity</th><th>Regime</th></tr>
  {{range .Months}}
  <tr>
    <td>{{.Date}}</td><td>{{opt .Growth}}</td><td>{{opt .Inflation}}</td><td>{{opt .YieldCurve}}</td>
    <td>{{opt .MoneyGrowth}}</td><td>{{opt .VelocityChange}}</td><td>{{.Regime}}</td>
  </tr>
  {{end}}
</table>
{{end}}

{{with .Optimizer}}
<h2>Optimal allocations</h2>
<p class="muted">{{.Solved}} solved · {{.Omitted}} omitted</p>
<table>
  <tr><th>Regime</th><th>Obs</th><th>Sharpe</th><th>Weights</th></tr>
  {{range .Regimes}}
  <tr>
    <td>{{.Regime}}</td><td>{{.Observations}}</td>
    {{if eq .Status "ok"}}<td>{{ratio .Sharpe}}</td><td class="label">{{weights .Weights}}</td>
    {{else}}<td>n/a</td><td class="label omitted">{{.Status}}</td>{{end}}
  </tr>
  {{end}}
</table>
{{end}}

{{with .Backtest}}
<h2>Backtest performance</h2>
{{if .Start}}<p class="muted">{{.Start}} to {{.End}} · {{.Days}} days ({{.ExcludedDays}} excluded) · {{.Rebalances}} rebalances</p>{{end}}
<div class="grid">
  <div class="metric"><div class="label">CAGR</div><div class="value">{{pct .Metrics.CAGR}}</div></div>
  <div class="metric"><div class="label">Volatility</div><div class="value">{{pct .Metrics.Volatility}}</div></div>
  <div class="metric"><div class="label">Sharpe</div><div class="value">{{ratio .Metrics.Sharpe}}</div></div>
  <div class="metric"><div class="label">Max Drawdown</div><div class="value">{{pct .Metrics.MaxDrawdown}}</div></div>
</div>
{{if $.EquityChart}}<div class="chart-container">{{$.EquityChart}}</div>{{end}}
{{end}}

</body>
</html>
`
