// Package ledger provides an append-only history of dispatched device
// commands, used for auditing and the status surface.
package ledger

import (
	"database/sql"
	"time"
)

// Outcome classifies how a dispatched command ended.
type Outcome string

const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeFailed      Outcome = "failed"
	OutcomeRateLimited Outcome = "rate_limited"
)

// Entry is a single dispatched command.
type Entry struct {
	ID        int64     `json:"-"`
	CommandID string    `json:"command_id"`
	DeviceID  string    `json:"device_id"`
	Color     string    `json:"color"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Ledger provides append-only command logging.
type Ledger struct {
	db *sql.DB
}

// New creates a Ledger using the provided database connection.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append records a dispatched command and its outcome.
func (l *Ledger) Append(commandID, deviceID, color string, outcome Outcome, cmdErr string) error {
	_, err := l.db.Exec(`
		INSERT INTO command_ledger (command_id, device_id, color, outcome, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, commandID, deviceID, color, string(outcome), cmdErr, time.Now().UTC().Unix())
	return err
}

// Tail returns the most recent entries, newest first.
func (l *Ledger) Tail(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, command_id, device_id, color, outcome, error, timestamp
		FROM command_ledger
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// ForDevice returns the most recent entries for one device, newest first.
func (l *Ledger) ForDevice(deviceID string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, command_id, device_id, color, outcome, error, timestamp
		FROM command_ledger
		WHERE device_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the retention period.
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.Exec(`DELETE FROM command_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var cmdErr sql.NullString
		var timestamp int64

		if err := rows.Scan(&entry.ID, &entry.CommandID, &entry.DeviceID, &entry.Color, &entry.Outcome, &cmdErr, &timestamp); err != nil {
			return nil, err
		}
		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if cmdErr.Valid {
			entry.Error = cmdErr.String
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
