package yfinance

// yfChartResponse wraps the v8 chart API response.
type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol       string `json:"symbol"`
	Currency     string `json:"currency"`
	ExchangeName string `json:"exchangeName"`
	GMTOffset    int64  `json:"gmtoffset"`
}

type yfIndicators struct {
	Quote    []yfQuote    `json:"quote"`
	AdjClose []yfAdjClose `json:"adjclose"`
}

type yfQuote struct {
	Close []*float64 `json:"close"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}
