package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"GlucoPlot/internal/domain/models"
	domrepo "GlucoPlot/internal/domain/repository"
	"GlucoPlot/internal/service/ratelimit"
	"GlucoPlot/internal/services/plot"
	"GlucoPlot/internal/usecase"
	xhttp "GlucoPlot/pkg/http"
	xlogger "GlucoPlot/pkg/logger"
	"GlucoPlot/pkg/queue"
	"GlucoPlot/pkg/util"
)

// PlotsEchoHandler serves charts, rendered plots, stored files and reports.
type PlotsEchoHandler struct {
	logger  *xlogger.Logger
	plotter *usecase.PlotterUseCase
	report  *usecase.ReportUseCase
	limiter *ratelimit.Limiter
	queue   queue.QueueService
}

func NewPlotsEchoHandler(
	logger *xlogger.Logger,
	plotter *usecase.PlotterUseCase,
	report *usecase.ReportUseCase,
	limiter *ratelimit.Limiter,
	q queue.QueueService,
) *PlotsEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &PlotsEchoHandler{logger: logger, plotter: plotter, report: report, limiter: limiter, queue: q}
}

func (h *PlotsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/charts/daily", h.DailyChart)
	g.GET("/charts/weekly", h.WeeklyChart)

	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, h.limiter.Middleware())
	}
	g.POST("/plots/daily", h.RenderDaily, mw...)
	g.POST("/plots/weekly", h.RenderWeekly, mw...)

	g.GET("/files/:id", h.GetFile)
	g.DELETE("/files/:id", h.DeleteFile)
	g.GET("/report", h.Report)
	g.GET("/latest", h.Latest)
}

func (h *PlotsEchoHandler) DailyChart(c echo.Context) error {
	req := &models.DailyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, end, err := h.dailyWindow(req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	res, err := h.plotter.DailyChart(c.Request().Context(), start, end)
	if err != nil {
		return h.chartError(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *PlotsEchoHandler) WeeklyChart(c echo.Context) error {
	req := &models.WeeklyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, end := h.plotter.WeeklyWindow(req.Offset)

	res, err := h.plotter.WeeklyChart(c.Request().Context(), start, end)
	if err != nil {
		return h.chartError(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

func (h *PlotsEchoHandler) RenderDaily(c echo.Context) error {
	req := &models.DailyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, end, err := h.dailyWindow(req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	if req.Async {
		return h.enqueue(c, usecase.JobRenderDaily, usecase.RenderPayload{Start: start, End: end})
	}
	ref, err := h.plotter.RenderDaily(c.Request().Context(), start, end)
	if err != nil {
		return h.chartError(c, err)
	}
	return xhttp.CreatedResponse(c, ref)
}

func (h *PlotsEchoHandler) RenderWeekly(c echo.Context) error {
	req := &models.WeeklyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if req.Async {
		return h.enqueue(c, usecase.JobRenderWeekly, usecase.RenderPayload{Offset: req.Offset})
	}
	start, end := h.plotter.WeeklyWindow(req.Offset)
	ref, err := h.plotter.RenderWeekly(c.Request().Context(), start, end)
	if err != nil {
		return h.chartError(c, err)
	}
	return xhttp.CreatedResponse(c, ref)
}

func (h *PlotsEchoHandler) GetFile(c echo.Context) error {
	req := &models.FileRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	blob, err := h.plotter.GetFile(c.Request().Context(), req.ID)
	if err != nil {
		return h.fileError(c, req.ID, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=86400")
	return xhttp.FileResponse(c, blob.Name, blob.ContentType, blob.Data)
}

func (h *PlotsEchoHandler) DeleteFile(c echo.Context) error {
	req := &models.FileRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.plotter.DeleteFile(c.Request().Context(), req.ID); err != nil {
		return h.fileError(c, req.ID, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *PlotsEchoHandler) Report(c echo.Context) error {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, err := parseOptionalTime("start", req.Start)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	end, err := parseOptionalTime("end", req.End)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	start, end = h.report.Window(start, end, req.Days)

	rep, err := h.report.Report(c.Request().Context(), start, end)
	if err != nil {
		return h.chartError(c, err)
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *PlotsEchoHandler) Latest(c echo.Context) error {
	req := &models.LatestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	readings, err := h.report.Latest(c.Request().Context(), req.N)
	if err != nil {
		h.logger.Error("latest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, readings, int64(len(readings)))
}

func (h *PlotsEchoHandler) enqueue(c echo.Context, jobType string, p usecase.RenderPayload) error {
	if h.queue == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotImplementedError("async", "background rendering is not enabled"))
	}
	if err := h.queue.PublishMessage(c.Request().Context(), jobType, p); err != nil {
		h.logger.Error("enqueue render failed", xlogger.String("type", jobType), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("render queue unavailable", err))
	}
	return xhttp.AcceptedResponse(c, map[string]string{"queued": jobType})
}

func (h *PlotsEchoHandler) dailyWindow(req *models.DailyRequest) (time.Time, time.Time, error) {
	start, err := parseOptionalTime("start", req.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseOptionalTime("end", req.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end = h.plotter.DailyWindow(start, end, req.Hours)
	return start, end, nil
}

// chartError maps engine input errors to 422 with the request window echoed
// back; anything else is logged and returned as 500.
func (h *PlotsEchoHandler) chartError(c echo.Context, err error) error {
	var werr *usecase.WindowError
	if errors.As(err, &werr) {
		appErr := xhttp.UnprocessableError(windowErrorCode(werr.Err), werr.Err.Error()).
			WithParam("kind", werr.Kind).
			WithParam("start", werr.Start.Format(time.RFC3339)).
			WithParam("end", werr.End.Format(time.RFC3339))
		return xhttp.AppErrorResponse(c, appErr)
	}
	h.logger.Error("plot usecase error",
		xlogger.String("path", c.Path()),
		xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func (h *PlotsEchoHandler) fileError(c echo.Context, id string, err error) error {
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("file %s not found", id))
	}
	h.logger.Error("blob store error", xlogger.String("id", id), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func windowErrorCode(err error) string {
	switch {
	case errors.Is(err, plot.ErrEmptyPrimarySeries):
		return "ERR_EMPTY_WINDOW"
	case errors.Is(err, plot.ErrInvalidThresholds):
		return "ERR_INVALID_THRESHOLDS"
	case errors.Is(err, plot.ErrInvalidTimestamp):
		return "ERR_INVALID_TIMESTAMP"
	case errors.Is(err, plot.ErrUnsortedInput):
		return "ERR_UNSORTED_INPUT"
	case errors.Is(err, plot.ErrDegenerateInterval):
		return "ERR_DEGENERATE_INTERVAL"
	}
	return "ERR_INVALID_WINDOW"
}

func parseOptionalTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := util.ParseTime(s)
	if !ok {
		return time.Time{}, xhttp.InvalidTimeError(field, s)
	}
	return t, nil
}
