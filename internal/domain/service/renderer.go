package service

import (
	"context"
	"io"

	"GlucoPlot/internal/domain/models"
)

// ChartRenderer draws a ChartSpec into an image.
type ChartRenderer interface {
	Render(ctx context.Context, spec models.ChartSpec, w io.Writer) error
	// ContentType is the MIME type of the produced image.
	ContentType() string
}
