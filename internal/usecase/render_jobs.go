package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"GlucoPlot/pkg/queue"
)

// Queue message types for plot rendering.
const (
	JobRenderDaily  = "render.daily"
	JobRenderWeekly = "render.weekly"
)

// RenderPayload is the queued form of a render request. Zero times fall back
// to the rolling daily window; Offset counts weeks back for weekly plots.
type RenderPayload struct {
	Start  time.Time `json:"start,omitempty"`
	End    time.Time `json:"end,omitempty"`
	Hours  int       `json:"hours,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// RenderJob renders and stores one plot kind off the request path.
type RenderJob struct {
	kind    string
	plotter *PlotterUseCase
}

func NewRenderDailyJob(p *PlotterUseCase) *RenderJob {
	return &RenderJob{kind: KindDaily, plotter: p}
}

func NewRenderWeeklyJob(p *PlotterUseCase) *RenderJob {
	return &RenderJob{kind: KindWeekly, plotter: p}
}

func (j *RenderJob) Name() string { return "render " + j.kind + " plot" }

func (j *RenderJob) Type() string {
	if j.kind == KindWeekly {
		return JobRenderWeekly
	}
	return JobRenderDaily
}

// Handle renders the plot. Windows without data are not retried.
func (j *RenderJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.Decode[RenderPayload](payload)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
	}

	if j.kind == KindWeekly {
		start, end := j.plotter.WeeklyWindow(p.Offset)
		_, err = j.plotter.RenderWeekly(ctx, start, end)
	} else {
		start, end := j.plotter.DailyWindow(p.Start, p.End, p.Hours)
		_, err = j.plotter.RenderDaily(ctx, start, end)
	}

	var werr *WindowError
	if errors.As(err, &werr) {
		return fmt.Errorf("%w: %v", queue.ErrPermanent, werr)
	}
	return err
}

var _ queue.Job = (*RenderJob)(nil)
