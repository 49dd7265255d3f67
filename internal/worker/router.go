package worker

import (
	"encoding/json"
	"fmt"

	"github.com/stormhead-org/comments/internal/lib"
)

type EventHandler func(data []byte) error

// Router dispatches a message to every handler registered for its event.
// Payloads are checked against the event's JSON schema first.
type Router struct {
	handlers map[string][]EventHandler
	schemas  map[string]string
}

func NewRouter(handlers map[string][]EventHandler, schemas map[string]string) *Router {
	return &Router{
		handlers: handlers,
		schemas:  schemas,
	}
}

// Handle runs the handlers of event in order and stops at the first error.
// Events without handlers are skipped.
func (this *Router) Handle(event string, data []byte) error {
	handlers, ok := this.handlers[event]
	if !ok {
		return nil
	}

	if schema, ok := this.schemas[event]; ok {
		err := lib.RequireJSON(json.RawMessage(data), schema)
		if err != nil {
			return fmt.Errorf("event %s: %w", event, err)
		}
	}

	for _, handler := range handlers {
		err := handler(data)
		if err != nil {
			return fmt.Errorf("event %s: %w", event, err)
		}
	}
	return nil
}
