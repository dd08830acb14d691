package notify

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PGNotifier publishes with pg_notify and listens on a dedicated pgx
// connection, so every API instance sharing the database sees every change.
type PGNotifier struct {
	db  *gorm.DB
	dsn string
	hub *Hub
	log *zap.Logger
}

func NewPGNotifier(db *gorm.DB, dsn string, hub *Hub, logger *zap.Logger) *PGNotifier {
	return &PGNotifier{db: db, dsn: dsn, hub: hub, log: logger}
}

func (n *PGNotifier) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := n.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", Channel, string(payload)).Error; err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

func (n *PGNotifier) Subscribe(ctx context.Context) (<-chan ChangeEvent, func()) {
	return n.hub.Subscribe(ctx)
}

// Run blocks, relaying notifications into the hub until ctx is done.
func (n *PGNotifier) Run(ctx context.Context) error {
	return runForever(ctx, n.log, "postgres", n.listen)
}

func (n *PGNotifier) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, n.dsn)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", Channel, err)
	}
	n.log.Info("listening for change events", zap.String("backend", "postgres"), zap.String("channel", Channel))

	for {
		note, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := Decode([]byte(note.Payload))
		if err != nil {
			n.log.Warn("ignoring malformed notification", zap.String("payload", note.Payload), zap.Error(err))
			continue
		}
		_ = n.hub.Publish(ctx, ev)
	}
}
