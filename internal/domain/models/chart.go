package models

import "time"

// Thresholds are the clinical glucose limits in mmol/L.
type Thresholds struct {
	Low    float64 `yaml:"low" json:"low" default:"4"`
	High   float64 `yaml:"high" json:"high" default:"10"`
	Target float64 `yaml:"target" json:"target" default:"6"`
}

// AxisBounds is the visible window of a chart.
type AxisBounds struct {
	XMin time.Time `json:"x_min"`
	XMax time.Time `json:"x_max"`
	YMin float64   `json:"y_min"`
	YMax float64   `json:"y_max"`
}

// Band is a shaded rectangle behind the traces.
type Band struct {
	Name    string    `json:"name"`
	XMin    time.Time `json:"x_min"`
	XMax    time.Time `json:"x_max"`
	YMin    float64   `json:"y_min"`
	YMax    float64   `json:"y_max"`
	Color   string    `json:"color"`
	Opacity float64   `json:"opacity"`
}

// TraceKind selects how a trace is drawn.
type TraceKind string

const (
	TraceLine    TraceKind = "line"
	TraceMarkers TraceKind = "markers"
)

// MarkerSymbol is a hint for marker shape; renderers may fall back to dots.
type MarkerSymbol string

const (
	SymbolDot          MarkerSymbol = "dot"
	SymbolTriangleUp   MarkerSymbol = "triangle-up"
	SymbolTriangleDown MarkerSymbol = "triangle-down"
)

// TraceStyle is the visual style of a trace.
type TraceStyle struct {
	Color  string       `json:"color,omitempty"`
	Symbol MarkerSymbol `json:"symbol,omitempty"`
	Size   float64      `json:"size,omitempty"`
	Width  float64      `json:"width,omitempty"`
}

// Point is one x/y pair of a trace.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Trace is a named series of points drawn as a line or as markers.
type Trace struct {
	Name   string     `json:"name"`
	Kind   TraceKind  `json:"kind"`
	Style  TraceStyle `json:"style"`
	Points []Point    `json:"points"`
}

// Rule is a horizontal reference line across the whole x range.
type Rule struct {
	Y      float64 `json:"y"`
	Color  string  `json:"color"`
	Dashed bool    `json:"dashed"`
}

// Margins in pixels around the plotting area.
type Margins struct {
	Left   int `json:"left"`
	Right  int `json:"right"`
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// ChartSpec is the renderer-agnostic description of a chart.
type ChartSpec struct {
	Title   string     `json:"title"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Margins Margins    `json:"margins"`
	Bounds  AxisBounds `json:"bounds"`
	Traces  []Trace    `json:"traces"`
	Bands   []Band     `json:"bands"`
	Rules   []Rule     `json:"rules"`
	// TimeFormat is the Go layout used for x axis tick labels.
	TimeFormat string `json:"time_format"`
	// Zone is the IANA name the x axis is displayed in.
	Zone string `json:"zone"`
}

// FileRef points at a rendered image in the blob store.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Blob is a stored image with its metadata.
type Blob struct {
	FileRef
	ContentType string    `json:"content_type"`
	Created     time.Time `json:"created"`
	Data        []byte    `json:"-"`
}
