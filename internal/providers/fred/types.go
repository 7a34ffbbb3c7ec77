package fred

// fredObservationsResponse is the body of series/observations.
type fredObservationsResponse struct {
	ObservationStart string            `json:"observation_start"`
	ObservationEnd   string            `json:"observation_end"`
	Units            string            `json:"units"`
	Count            int               `json:"count"`
	Observations     []fredObservation `json:"observations"`
}

// fredObservation carries its value as a string; "." marks a missing point.
type fredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}
