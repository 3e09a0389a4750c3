package models

// Requests for the plot HTTP endpoints. Start/End accept RFC3339 or unix seconds;
// empty values fall back to the use case defaults.

type DailyRequest struct {
	Start string `query:"start" json:"start"`
	End   string `query:"end" json:"end"`
	Hours int    `query:"hours" json:"hours" default:"12" validate:"gte=1,lte=72"`
	// Async queues the render instead of waiting for it. POST only.
	Async bool `json:"async"`
}

type WeeklyRequest struct {
	// Offset counts whole weeks back from the current one.
	Offset int  `query:"offset" json:"offset" default:"0" validate:"gte=0,lte=52"`
	Async  bool `json:"async"`
}

type ReportRequest struct {
	Start string `query:"start" json:"start"`
	End   string `query:"end" json:"end"`
	Days  int    `query:"days" json:"days" default:"7" validate:"gte=1,lte=90"`
}

type LatestRequest struct {
	N int `query:"n" json:"n" default:"12" validate:"gte=1,lte=288"`
}

type FileRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}
