package journal

import (
	"fmt"
	"time"
)

// DeliveryEvent is one recorded step in a message's delivery.
type DeliveryEvent struct {
	ID         int64
	MsgID      string
	ChatID     string
	Kind       string
	Detail     string
	OccurredAt int64
}

// LinkEvent is one recorded network or transport change.
type LinkEvent struct {
	ID         int64
	Kind       string
	Detail     string
	OccurredAt int64
}

// AppendDelivery records a delivery event.
func (db *DB) AppendDelivery(e DeliveryEvent) error {
	if e.OccurredAt == 0 {
		e.OccurredAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO delivery_events (msg_id, chat_id, kind, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.MsgID, e.ChatID, e.Kind, e.Detail, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert delivery event: %w", err)
	}
	return nil
}

// AppendLink records a network or transport event.
func (db *DB) AppendLink(e LinkEvent) error {
	if e.OccurredAt == 0 {
		e.OccurredAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`INSERT INTO link_events (kind, detail, occurred_at) VALUES (?, ?, ?)`,
		e.Kind, e.Detail, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert link event: %w", err)
	}
	return nil
}

// ListDeliveries returns the newest delivery events, oldest first. An empty
// msgID lists events for every message.
func (db *DB) ListDeliveries(msgID string, limit int) ([]DeliveryEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT id, msg_id, chat_id, kind, detail, occurred_at FROM (
			SELECT id, msg_id, chat_id, kind, detail, occurred_at
			FROM delivery_events
			WHERE ? = '' OR msg_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, msgID, msgID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []DeliveryEvent
	for rows.Next() {
		var e DeliveryEvent
		if err := rows.Scan(&e.ID, &e.MsgID, &e.ChatID, &e.Kind, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListLinks returns the newest link events, oldest first.
func (db *DB) ListLinks(limit int) ([]LinkEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT id, kind, detail, occurred_at FROM (
			SELECT id, kind, detail, occurred_at FROM link_events ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []LinkEvent
	for rows.Next() {
		var e LinkEvent
		if err := rows.Scan(&e.ID, &e.Kind, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByKind returns the number of delivery events per kind.
func (db *DB) CountByKind() (map[string]int, error) {
	rows, err := db.Query(`SELECT kind, COUNT(*) FROM delivery_events GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
