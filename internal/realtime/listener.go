// Package realtime subscribes to the feature store's change feed and
// invalidates cached model artifacts when new feature rows land, so the
// next prediction request retrains on fresh data instead of serving a
// stale classifier until process restart.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const featureTopic = "realtime:public:feature_employee_week"

// Invalidator is the cache surface the listener drives.
type Invalidator interface {
	Invalidate(modelID string)
}

type Listener struct {
	url      string
	key      string
	modelIDs []string
	cache    Invalidator
	ping     time.Duration
}

// New creates a listener that invalidates the given model identifiers on
// every feature-table change event.
func New(url, serviceKey string, cache Invalidator, modelIDs []string) *Listener {
	return &Listener{
		url:      url,
		key:      serviceKey,
		modelIDs: modelIDs,
		cache:    cache,
		ping:     30 * time.Second,
	}
}

// Run maintains the subscription until ctx is done, reconnecting with
// exponential backoff on failure.
func (l *Listener) Run(ctx context.Context) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := l.listenOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn().Err(err).Dur("backoff", backoff).Msg("realtime connection failed, reconnecting")

				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return ctx.Err()
				}

				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = time.Second
		}
	}
}

type realtimeMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (l *Listener) listenOnce(ctx context.Context) error {
	log.Info().Str("url", l.url).Msg("establishing realtime connection")

	dialURL := l.url + "?apikey=" + l.key
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	join := map[string]any{
		"topic":   featureTopic,
		"event":   "phx_join",
		"payload": map[string]any{},
		"ref":     "1",
	}
	if err := conn.WriteJSON(join); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	pingTicker := time.NewTicker(l.ping)
	defer pingTicker.Stop()

	msgs := make(chan realtimeMessage, 16)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg realtimeMessage
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			msgs <- msg
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			heartbeat := map[string]any{
				"topic":   "phoenix",
				"event":   "heartbeat",
				"payload": map[string]any{},
				"ref":     "hb",
			}
			if err := conn.WriteJSON(heartbeat); err != nil {
				return fmt.Errorf("heartbeat failed: %w", err)
			}
		case err := <-readErr:
			return fmt.Errorf("read failed: %w", err)
		case msg := <-msgs:
			l.handle(msg)
		}
	}
}

func (l *Listener) handle(msg realtimeMessage) {
	if msg.Topic != featureTopic {
		return
	}

	switch msg.Event {
	case "INSERT", "UPDATE", "DELETE":
		log.Info().Str("event", msg.Event).Msg("feature store changed, invalidating cached models")
		for _, id := range l.modelIDs {
			l.cache.Invalidate(id)
		}
	case "phx_reply", "phx_error":
		log.Debug().Str("event", msg.Event).Msg("realtime control message")
	}
}
