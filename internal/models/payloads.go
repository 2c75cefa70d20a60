package models

// These structs define the JSON payloads accepted by the HTTP and event ingress and
// returned to their callers.

// StartETLRequest is the body of POST /start-etl and of event-stream messages.
type StartETLRequest struct {
	Documents []DocumentContractState `json:"documents"`
}

// StartETLResponse is the aggregate acknowledgment returned by the HTTP ingress.
type StartETLResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
}

// PubSubMessage is the message carried inside a Pub/Sub CloudEvent.
type PubSubMessage struct {
	Data       []byte            `json:"data"`
	Attributes map[string]string `json:"attributes,omitempty"`
	MessageID  string            `json:"messageId,omitempty"`
}

// MessagePublishedData is the data payload of a google.cloud.pubsub.topic.v1.messagePublished event.
type MessagePublishedData struct {
	Message      PubSubMessage `json:"message"`
	Subscription string        `json:"subscription,omitempty"`
}
