package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// NotifyChannel is the channel commits signal on; the payload is the draft id.
const NotifyChannel = "draft_events"

type ListenerConfig struct {
	DatabaseURL   string // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel string
	PingInterval  time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel: NotifyChannel,
		PingInterval:  90 * time.Second,
	}
}

// Notifier turns Postgres notifications into relay wakeups. Notifications
// carry no data the relay needs, so bursts collapse into a single wake.
type Notifier struct {
	listener *pq.Listener
	cfg      ListenerConfig
	wake     chan struct{}
}

func NewNotifier(cfg ListenerConfig) (*Notifier, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for notifications")

	return &Notifier{
		listener: l,
		cfg:      cfg,
		wake:     make(chan struct{}, 1),
	}, nil
}

// Wake fires after each notification or reconnect.
func (n *Notifier) Wake() <-chan struct{} {
	return n.wake
}

// Run forwards notifications until ctx is done, then closes the listener.
func (n *Notifier) Run(ctx context.Context) error {
	pingTicker := time.NewTicker(n.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("notifier shutting down")
			return n.listener.Close()
		case note := <-n.listener.Notify:
			// nil means the connection was re-established; events may have
			// been missed so wake anyway
			if note != nil {
				log.Debug().Str("draft_id", note.Extra).Msg("draft events committed")
			}
			n.signal()
		case <-pingTicker.C:
			if err := n.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (n *Notifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}
