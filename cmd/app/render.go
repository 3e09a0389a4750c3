package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"GlucoPlot/internal/di"
	"GlucoPlot/internal/domain/repository"
	internalrepo "GlucoPlot/internal/repository"
	"GlucoPlot/internal/usecase"
	applogger "GlucoPlot/pkg/logger"
	"GlucoPlot/pkg/util"
)

var (
	renderKind   string
	renderInput  string
	renderOut    string
	renderStart  string
	renderEnd    string
	renderHours  int
	renderOffset int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a daily or weekly chart to a PNG file",
	Long: `Render reads events from the configured store, or from --input: a file of
JSON event messages, one per line, in the same format as the events topic.
Windows end at the newest reading unless --end is given.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderKind, "kind", usecase.KindDaily, "chart kind: daily or weekly")
	renderCmd.Flags().StringVar(&renderInput, "input", "", "JSON lines file of events (default: configured store)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output file (default: generated name)")
	renderCmd.Flags().StringVar(&renderStart, "start", "", "daily window start, RFC3339 or unix seconds")
	renderCmd.Flags().StringVar(&renderEnd, "end", "", "daily window end, RFC3339 or unix seconds")
	renderCmd.Flags().IntVar(&renderHours, "hours", 0, "daily window length when --start is empty")
	renderCmd.Flags().IntVar(&renderOffset, "offset", 0, "weeks back from the newest reading")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := di.ProvideLogger(cfg)
	if err != nil {
		return err
	}
	start, err := parseFlagTime("start", renderStart)
	if err != nil {
		return err
	}
	end, err := parseFlagTime("end", renderEnd)
	if err != nil {
		return err
	}

	metrics := di.ProvideMetrics()
	var store repository.EventStore
	if renderInput != "" {
		s, err := internalrepo.NewSQLiteEventStore(":memory:", log)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Init(ctx); err != nil {
			return err
		}
		n, err := importEvents(ctx, usecase.NewEventsHandler("", s, metrics, nil, log), renderInput)
		if err != nil {
			return err
		}
		log.Info("events imported", applogger.String("file", renderInput), applogger.Int("count", n))
		store = s
	} else {
		s, cleanup, err := di.ProvideEventStore(cfg, log)
		if err != nil {
			return err
		}
		defer cleanup()
		store = s
	}

	latest, err := store.LatestGlucose(ctx, 1)
	if err != nil {
		return fmt.Errorf("latest reading: %w", err)
	}
	if len(latest) == 0 {
		return fmt.Errorf("no glucose readings to plot")
	}
	anchor := latest[0].Time.Add(time.Second)

	pc, err := di.ProvidePlotterConfig(cfg)
	if err != nil {
		return err
	}
	pc.CacheTTL = 0
	renderer := di.ProvideRenderer()
	plotter := usecase.NewPlotterUseCase(pc, store, nil, renderer, internalrepo.NopPublisher{}, metrics, log,
		usecase.WithClock(func() time.Time { return anchor }))

	var res *usecase.ChartResult
	switch renderKind {
	case usecase.KindDaily:
		hours := renderHours
		if hours <= 0 {
			hours = cfg.Plot.DailyHours
		}
		s, e := plotter.DailyWindow(start, end, hours)
		res, err = plotter.DailyChart(ctx, s, e)
	case usecase.KindWeekly:
		s, e := plotter.WeeklyWindow(renderOffset)
		res, err = plotter.WeeklyChart(ctx, s, e)
	default:
		return fmt.Errorf("unknown chart kind %q", renderKind)
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := renderer.Render(ctx, res.Spec, &buf); err != nil {
		return err
	}
	out := renderOut
	if out == "" {
		out = usecase.FileName(res.Kind, res.Last)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s chart %s .. %s written to %s\n",
		res.Kind, res.Start.Format(time.RFC3339), res.End.Format(time.RFC3339), out)
	return nil
}

// importEvents feeds every non-empty line of path through h.
func importEvents(ctx context.Context, h *usecase.EventsHandler, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var n, line int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		if err := h.Handle(ctx, b); err != nil {
			return n, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read input: %w", err)
	}
	return n, nil
}

func parseFlagTime(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, ok := util.ParseTime(v)
	if !ok {
		return time.Time{}, fmt.Errorf("--%s: expected RFC3339 or unix seconds, got %q", name, v)
	}
	return t, nil
}
