package provider

// ModelType names a standard data model served by fetchers.
type ModelType string

const (
	ModelFredSeries       ModelType = "FredSeries"
	ModelEquityHistorical ModelType = "EquityHistorical"
	ModelCryptoHistorical ModelType = "CryptoHistorical"
)

// AllModels returns every model type known to the registry.
func AllModels() []ModelType {
	return []ModelType{ModelFredSeries, ModelEquityHistorical, ModelCryptoHistorical}
}

// ModelCategory groups a model type for display.
func ModelCategory(m ModelType) string {
	switch m {
	case ModelFredSeries:
		return "economy"
	case ModelEquityHistorical, ModelCryptoHistorical:
		return "prices"
	default:
		return "unknown"
	}
}
