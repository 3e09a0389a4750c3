package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GlucoPlot/internal/domain/repository"
	"GlucoPlot/internal/handler/api"
	"GlucoPlot/internal/middleware"
	"GlucoPlot/internal/scheduler"
	"GlucoPlot/internal/service/ratelimit"
	"GlucoPlot/internal/usecase"
	"GlucoPlot/pkg/config"
	xhttp "GlucoPlot/pkg/http"
	pkgkafka "GlucoPlot/pkg/kafka"
	applogger "GlucoPlot/pkg/logger"
	"GlucoPlot/pkg/queue"
)

// limiterIdle is how long a client bucket may sit unused before it is pruned.
const limiterIdle = 10 * time.Minute

// Components is everything App drives. Consumer and Scheduler are nil when
// disabled in config.
type Components struct {
	Config    *config.Config
	Log       *applogger.Logger
	Store     repository.EventStore
	Consumer  *pkgkafka.Consumer
	Events    *usecase.EventsHandler
	Queue     queue.Runner
	Scheduler *scheduler.Scheduler
	Live      *middleware.LivePipeline
	Hub       *api.LiveHub
	Limiter   *ratelimit.Limiter
	HTTP      *xhttp.Server
}

// App encapsulates the entire application lifecycle.
type App struct {
	Components
}

// New creates a new App instance with all dependencies.
func New(c Components) *App {
	if c.Log == nil {
		c.Log = applogger.NewNop()
	}
	return &App{Components: c}
}

// Run starts every component and blocks until ctx is cancelled, then shuts
// everything down in reverse order.
func (a *App) Run(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		a.shutdown()
		return err
	}
	a.Log.Info("glucoplot started",
		applogger.Int("port", a.Config.Server.Port),
		applogger.String("store", a.Config.Store.Backend),
		applogger.String("timezone", a.Config.Timezone),
		applogger.Strings("cors_origins", a.Config.Server.CORSOrigins),
		applogger.Bool("kafka", a.Consumer != nil),
		applogger.Bool("scheduler", a.Scheduler != nil))

	<-ctx.Done()
	a.Log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) start(ctx context.Context) error {
	if err := a.Queue.Start(); err != nil {
		return fmt.Errorf("start queue: %w", err)
	}
	a.Live.Start(ctx)

	if a.Consumer != nil {
		a.Consumer.RegisterHandler(a.Events)
		a.Consumer.WithConsumerHook(pkgkafka.NewHookChain(
			pkgkafka.TraceHook(),
			pkgkafka.LoggingHook(a.Log, a.Config.Kafka.Consumer.SlowAfter),
		))
		if err := a.Consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}

	if a.Scheduler != nil {
		if err := a.Scheduler.AddTask("limiter.prune", "@every 5m", func(context.Context) error {
			if n := a.Limiter.Prune(limiterIdle); n > 0 {
				a.Log.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
			return nil
		}); err != nil {
			return err
		}
		a.Scheduler.Start()
	}

	return a.HTTP.Start()
}

// shutdown gracefully stops all services. Inputs stop before the workers
// they feed.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.HTTP.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	a.Hub.Close()
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Consumer != nil {
		if err := a.Consumer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer: %w", err))
		}
	}
	a.Live.Stop()
	if err := a.Queue.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("queue: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		a.Log.Error("shutdown finished with errors", applogger.Error(err))
	} else {
		a.Log.Info("shutdown complete")
	}
	return err
}
