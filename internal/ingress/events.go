package ingress

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// EventHandler runs the ETL for documents published on Pub/Sub.
type EventHandler struct {
	runner Runner
}

func NewEventHandler(runner Runner) *EventHandler {
	return &EventHandler{runner: runner}
}

// Handle processes one messagePublished CloudEvent. Malformed payloads are logged and
// acknowledged; only orchestration errors are returned, so the event is redelivered.
func (h *EventHandler) Handle(ctx context.Context, e event.Event) error {
	logCtx := slog.With("eventId", e.ID(), "eventType", e.Type())

	var msg models.MessagePublishedData
	if err := e.DataAs(&msg); err != nil {
		logCtx.Error("Dropping event with unreadable data", "error", err)
		return nil
	}
	logCtx = logCtx.With("messageId", msg.Message.MessageID)

	docs, err := ParseDocuments(msg.Message.Data)
	if err != nil {
		logCtx.Error("Dropping message with invalid documents", "error", err)
		return nil
	}

	logCtx.Info("Processing published documents.", "documents", len(docs))
	if _, err := h.runner.Execute(ctx, docs); err != nil {
		return errors.Wrapf(err, "message %s", msg.Message.MessageID)
	}
	return nil
}

// ParseDocuments decodes a message body holding either {"documents": [...]} or a single
// document, and validates every document.
func ParseDocuments(data []byte) ([]models.DocumentContractState, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty message")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrap(err, "message is not a JSON object")
	}

	var docs []models.DocumentContractState
	if _, ok := probe["documents"]; ok {
		var req models.StartETLRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, errors.Wrap(err, "invalid documents list")
		}
		docs = req.Documents
	} else {
		var d models.DocumentContractState
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, errors.Wrap(err, "invalid document")
		}
		docs = []models.DocumentContractState{d}
	}

	if err := validateDocuments(docs); err != nil {
		return nil, err
	}
	return docs, nil
}
