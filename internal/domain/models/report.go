package models

import "time"

// RangeAnalysis is the fraction of readings below, inside and above range.
type RangeAnalysis struct {
	BelowRange float64 `json:"below_range"`
	InRange    float64 `json:"in_range"`
	AboveRange float64 `json:"above_range"`
}

// SummaryStatistics of glucose values.
type SummaryStatistics struct {
	Average   float64 `json:"average"`
	Deviation float64 `json:"deviation"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
}

// DailyIntake totals insulin and carbs for one local calendar day.
type DailyIntake struct {
	Day   time.Time `json:"day"`
	Rapid float64   `json:"rapid"`
	Slow  float64   `json:"slow"`
	Carbs float64   `json:"carbs"`
}

// Report summarises a window of readings and intake.
type Report struct {
	Start   time.Time         `json:"start"`
	End     time.Time         `json:"end"`
	Count   int               `json:"count"`
	Range   RangeAnalysis     `json:"range"`
	Summary SummaryStatistics `json:"summary"`
	Days    []DailyIntake     `json:"days"`
}
