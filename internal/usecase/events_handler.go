package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"GlucoPlot/internal/domain/models"
	domrepo "GlucoPlot/internal/domain/repository"
	pkgkafka "GlucoPlot/pkg/kafka"
	"GlucoPlot/pkg/logger"
)

// LiveFeed receives glucose readings as they are ingested.
type LiveFeed interface {
	Process(ctx context.Context, r models.GlucoseReading) error
}

// EventsHandler consumes event messages from Kafka and writes them to the store.
type EventsHandler struct {
	topic    string
	store    domrepo.EventWriter
	metrics  domrepo.Metrics
	live     LiveFeed
	log      *logger.Logger
	validate *validator.Validate
}

func NewEventsHandler(topic string, store domrepo.EventWriter, metrics domrepo.Metrics, live LiveFeed, log *logger.Logger) *EventsHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventsHandler{
		topic:    topic,
		store:    store,
		metrics:  metrics,
		live:     live,
		log:      log,
		validate: validator.New(),
	}
}

func (h *EventsHandler) Topic() string { return h.topic }

// Handle decodes one EventMessage. Malformed payloads are permanent failures;
// store errors are returned as is so the consumer retries them.
func (h *EventsHandler) Handle(ctx context.Context, b []byte) error {
	var m models.EventMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: decode event: %v", pkgkafka.ErrPermanent, err)
	}
	if err := h.validate.Struct(m); err != nil {
		h.metrics.RecordError("consumer_validate")
		return fmt.Errorf("%w: invalid event: %v", pkgkafka.ErrPermanent, err)
	}
	at := m.Instant()
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(at).Seconds())

	start := time.Now()
	existed, err := h.write(ctx, m, at)
	h.metrics.RecordLatency("store_write_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return fmt.Errorf("store %s: %w", m.Kind, err)
	}
	h.metrics.RecordEvent(string(m.Kind))
	if existed {
		h.log.Debug("event replaced",
			logger.String("kind", string(m.Kind)),
			logger.Time("time", at))
	}

	if m.Kind == models.KindGlucose {
		h.metrics.RecordLastGlucose(m.Value)
		if h.live != nil {
			r := models.GlucoseReading{Time: at, Mmol: m.Value, Trend: m.Trend}
			if err := h.live.Process(ctx, r); err != nil {
				h.log.Warn("live feed failed", logger.Error(err))
			}
		}
	}
	return nil
}

func (h *EventsHandler) write(ctx context.Context, m models.EventMessage, at time.Time) (bool, error) {
	switch m.Kind {
	case models.KindGlucose:
		return h.store.WriteGlucose(ctx, models.GlucoseReading{Time: at, Mmol: m.Value, Trend: m.Trend})
	case models.KindInsulin:
		typ := m.InsulinType
		if typ == "" {
			typ = models.RapidActing.String()
		}
		return h.store.WriteInsulin(ctx, models.InsulinDose{Time: at, Type: typ, Amount: m.Value})
	case models.KindCarbs:
		return h.store.WriteCarbs(ctx, models.CarbIntake{Time: at, Amount: m.Value})
	}
	return false, fmt.Errorf("%w: unknown kind %q", pkgkafka.ErrPermanent, m.Kind)
}

var _ pkgkafka.MessageHandler = (*EventsHandler)(nil)
