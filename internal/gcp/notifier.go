package gcp

import (
	"context"
	"log/slog"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// CloudEventsNotifier sends a batch of notifications as a single CloudEvent whose data is the
// JSON list of notifications.
type CloudEventsNotifier struct {
	client    cloudevents.Client
	sink      string
	eventType string
	source    string
}

// NewCloudEventsNotifier creates an HTTP CloudEvents client targeting sink. With an empty sink
// notifications are only logged.
func NewCloudEventsNotifier(sink, eventType, source string) (*CloudEventsNotifier, error) {
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CloudEvents client")
	}
	return &CloudEventsNotifier{client: client, sink: sink, eventType: eventType, source: source}, nil
}

func (n *CloudEventsNotifier) Notify(ctx context.Context, notifications []models.Notification) error {
	if n.sink == "" {
		slog.Warn("No notification sink configured; dropping notifications.", "count", len(notifications))
		return nil
	}

	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetType(n.eventType)
	event.SetSource(n.source)
	event.SetTime(time.Now())
	if err := event.SetData(cloudevents.ApplicationJSON, notifications); err != nil {
		return errors.Wrap(err, "failed to encode notifications")
	}

	ctx = cloudevents.ContextWithTarget(ctx, n.sink)
	if result := n.client.Send(ctx, event); !cloudevents.IsACK(result) {
		return errors.Wrapf(result, "notification sink %s rejected %d notifications", n.sink, len(notifications))
	}
	return nil
}
