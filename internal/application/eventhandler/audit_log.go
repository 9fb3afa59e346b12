package eventhandler

import (
	"log/slog"

	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// AuditLogHandler writes every event to the log at info level.
type AuditLogHandler struct {
	logger *slog.Logger
}

// NewAuditLogHandler creates an AuditLogHandler.
func NewAuditLogHandler(logger *slog.Logger) *AuditLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogHandler{logger: logger.With("handler", "audit_log")}
}

// Handle implements shared.EventHandler.
func (h *AuditLogHandler) Handle(event shared.Event) error {
	attrs := make([]any, 0, 2*len(event.Payload())+4)
	attrs = append(attrs,
		"event_type", string(event.EventType()),
		"aggregate_id", event.AggregateID(),
	)
	for k, v := range event.Payload() {
		attrs = append(attrs, k, v)
	}
	h.logger.Info("domain event", attrs...)
	return nil
}

// Register subscribes the handlers to bus.
func Register(bus shared.EventSubscriber, activity *OnLearnerActivityHandler, audit *AuditLogHandler) error {
	if activity != nil {
		for _, t := range activity.EventTypes() {
			if err := bus.Subscribe(t, activity.Handle); err != nil {
				return err
			}
		}
	}
	if audit != nil {
		if err := bus.SubscribeAll(audit.Handle); err != nil {
			return err
		}
	}
	return nil
}
