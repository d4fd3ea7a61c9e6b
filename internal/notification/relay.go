package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/messaging"
)

// Relay returns a consumer handler that decodes published notification
// events and hands them to sink. Undecodable bodies are logged and acked
// since redelivery cannot fix them.
func Relay(sink Sink) messaging.Handler {
	return func(ctx context.Context, routingKey string, body json.RawMessage) error {
		var evt messaging.NotificationEvent
		if err := json.Unmarshal(body, &evt); err != nil {
			log.Warn().Err(err).Str("routing_key", routingKey).Msg("skipping undecodable notification event")
			return nil
		}
		if evt.EventType == "" {
			evt.EventType = routingKey
		}

		intent := FromEvent(evt)
		if err := sink.Deliver(ctx, intent); err != nil {
			return fmt.Errorf("failed to deliver %s via %s: %w", intent.Event, sink.Name(), err)
		}
		log.Debug().Str("event", string(intent.Event)).Str("intent_id", intent.ID).Str("sink", sink.Name()).Msg("notification relayed")
		return nil
	}
}
