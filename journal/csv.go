// journal/csv.go
package journal

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/KaidenAngle/TomKingTrading-sub001/pkg/id"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
)

type CSVJournal struct {
	events    *csv.Writer
	decisions *csv.Writer
	ef, df    *os.File
}

func NewCSV(eventsPath, decisionsPath string) (*CSVJournal, error) {
	ef, err := os.Create(eventsPath)
	if err != nil {
		return nil, err
	}
	df, err := os.Create(decisionsPath)
	if err != nil {
		return nil, err
	}

	ew := csv.NewWriter(ef)
	dw := csv.NewWriter(df)

	if err := ew.Write([]string{"event_id", "type", "level", "message", "payload", "time"}); err != nil {
		return nil, err
	}
	if err := dw.Write([]string{"decision_id", "strategy", "symbol", "outcome", "approved", "reason", "time"}); err != nil {
		return nil, err
	}

	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}
	dw.Flush()
	if err := dw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{ew, dw, ef, df}, nil
}

func (j *CSVJournal) RecordEvent(e risk.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	j.events.Write([]string{
		e.ID,
		string(e.Type),
		string(e.Level),
		e.Message,
		string(payload),
		e.Time.UTC().Format(time.RFC3339Nano),
	})
	j.events.Flush()
	return j.events.Error()
}

func (j *CSVJournal) RecordDecision(d DecisionRecord) error {
	if d.ID == "" {
		d.ID = id.New()
	}
	j.decisions.Write([]string{
		d.ID,
		d.Strategy,
		d.Symbol,
		d.Outcome,
		strconv.FormatBool(d.Approved),
		d.Reason,
		d.Time.UTC().Format(time.RFC3339Nano),
	})
	j.decisions.Flush()
	return j.decisions.Error()
}

func (j *CSVJournal) Close() error {
	j.events.Flush()
	j.decisions.Flush()
	if err := j.events.Error(); err != nil {
		return err
	}
	if err := j.decisions.Error(); err != nil {
		return err
	}
	if err := j.ef.Close(); err != nil {
		return err
	}
	return j.df.Close()
}
