package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/KaidenAngle/TomKingTrading-sub001/pkg/id"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordEvent(e risk.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	_, err = j.db.Exec(`
		INSERT INTO events
		(event_id, type, level, message, payload, time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), string(e.Level), e.Message, string(payload), e.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordDecision(d DecisionRecord) error {
	if d.ID == "" {
		d.ID = id.New()
	}
	_, err := j.db.Exec(`
		INSERT INTO decisions
		(decision_id, strategy, symbol, outcome, approved, reason, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Strategy, d.Symbol, d.Outcome, d.Approved, d.Reason, d.Time,
	)
	return err
}

// ListEventsByLevel returns events at a severity, oldest first.
func (j *SQLiteJournal) ListEventsByLevel(level risk.Level) ([]risk.Event, error) {
	rows, err := j.db.Query(`
		SELECT event_id, type, level, message, payload, time
		FROM events
		WHERE level = ?
		ORDER BY time ASC, event_id ASC`, string(level))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListEventsBetween returns events whose time is within [start, end).
func (j *SQLiteJournal) ListEventsBetween(start, end time.Time) ([]risk.Event, error) {
	rows, err := j.db.Query(`
		SELECT event_id, type, level, message, payload, time
		FROM events
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, event_id ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]risk.Event, error) {
	var out []risk.Event
	for rows.Next() {
		var (
			e       risk.Event
			typ     string
			level   string
			payload string
		)
		if err := rows.Scan(&e.ID, &typ, &level, &e.Message, &payload, &e.Time); err != nil {
			return nil, err
		}
		e.Type = risk.EventType(typ)
		e.Level = risk.Level(level)
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			e.Payload = nil
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDecision returns a single decision record by ID.
func (j *SQLiteJournal) GetDecision(decisionID string) (DecisionRecord, error) {
	var rec DecisionRecord
	row := j.db.QueryRow(`
		SELECT decision_id, strategy, symbol, outcome, approved, reason, time
		FROM decisions
		WHERE decision_id = ?`, decisionID)

	err := row.Scan(&rec.ID, &rec.Strategy, &rec.Symbol, &rec.Outcome, &rec.Approved, &rec.Reason, &rec.Time)
	if err != nil {
		if err == sql.ErrNoRows {
			return DecisionRecord{}, fmt.Errorf("decision %q not found", decisionID)
		}
		return DecisionRecord{}, err
	}
	return rec, nil
}

// ListDenials returns every denied decision, oldest first.
func (j *SQLiteJournal) ListDenials() ([]DecisionRecord, error) {
	rows, err := j.db.Query(`
		SELECT decision_id, strategy, symbol, outcome, approved, reason, time
		FROM decisions
		WHERE approved = 0
		ORDER BY time ASC, decision_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		if err := rows.Scan(&rec.ID, &rec.Strategy, &rec.Symbol, &rec.Outcome, &rec.Approved, &rec.Reason, &rec.Time); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
