package models

// Requests for the analysis HTTP endpoints. Defined in domain for consistency and reuse.

type RunAnalysisRequest struct {
	Variant      string  `json:"variant" default:"single" validate:"oneof=single two"`
	Draws        int     `json:"draws" default:"2000" validate:"gte=100,lte=20000"`
	Tune         int     `json:"tune" default:"1000" validate:"gte=100,lte=20000"`
	Chains       int     `json:"chains" default:"4" validate:"gte=1,lte=16"`
	TargetAccept float64 `json:"target_accept" default:"0.9" validate:"gt=0,lt=1"`
	Seed         int64   `json:"seed" default:"42"`
	WindowDays   int     `json:"window_days" default:"90" validate:"gte=1,lte=730"`
}

type PricesRequest struct {
	From string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
}

type VolatilityRequest struct {
	Window int `query:"window" json:"window" default:"30" validate:"gte=2,lte=365"`
}

type EventImpactRequest struct {
	Title      string `query:"title" json:"title" validate:"required"`
	WindowDays int    `query:"window_days" json:"window_days" default:"30" validate:"gte=1,lte=365"`
}

type AnalysisResultRequest struct {
	Variant string `query:"variant" json:"variant" default:"single" validate:"oneof=single two"`
}
