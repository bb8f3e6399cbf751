package typing

// SubscriptionRequest opens a live feed over a set of tickers.
type SubscriptionRequest struct {
	Symbols  []string `json:"symbols" validate:"required,min=1"`
	Interval string   `json:"interval" validate:"required"`
}

// SubscriptionUpdateRequest replaces the symbol set or interval of an
// existing subscription in one step.
type SubscriptionUpdateRequest struct {
	ID string `json:"id" validate:"required"`
	SubscriptionRequest
}

type SubscriptionResult struct {
	ID       string   `json:"id"`
	Symbols  []string `json:"symbols"`
	Interval string   `json:"interval"`
}
