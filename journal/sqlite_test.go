package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
)

func newTestSQLite(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "risk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteRecordAndListEvents(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	now := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

	trip := risk.NewEvent(risk.EventCircuitTrip, risk.LevelEmergency,
		"circuit breaker tripped: daily loss -6.00% < -5.00%",
		map[string]any{"value": 94000.0}, now)
	warn := risk.NewEvent(risk.EventConcentrationWarning, risk.LevelWarning,
		"stale allocation purged", nil, now.Add(time.Minute))

	require.NoError(t, j.RecordEvent(trip))
	require.NoError(t, j.RecordEvent(warn))

	emergencies, err := j.ListEventsByLevel(risk.LevelEmergency)
	require.NoError(t, err)
	require.Len(t, emergencies, 1)
	assert.Equal(t, trip.ID, emergencies[0].ID)
	assert.Contains(t, emergencies[0].Message, "-6.00%")
	assert.Equal(t, 94000.0, emergencies[0].Payload["value"])

	all, err := j.ListEventsBetween(now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, trip.ID, all[0].ID, "oldest first")
}

func TestSQLiteRecordAndQueryDecisions(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	now := time.Now().UTC()

	require.NoError(t, j.RecordDecision(DecisionRecord{
		ID: "d1", Strategy: "strangle-es", Symbol: "ES",
		Outcome: "approved", Approved: true, Reason: "group ok: 1/2", Time: now,
	}))
	require.NoError(t, j.RecordDecision(DecisionRecord{
		ID: "d2", Strategy: "strangle-nq", Symbol: "NQ",
		Outcome: "denied", Approved: false, Reason: "group at limit: 2/2", Time: now.Add(time.Second),
	}))

	got, err := j.GetDecision("d2")
	require.NoError(t, err)
	assert.False(t, got.Approved)
	assert.Equal(t, "group at limit: 2/2", got.Reason)

	denials, err := j.ListDenials()
	require.NoError(t, err)
	require.Len(t, denials, 1)
	assert.Equal(t, "d2", denials[0].ID)
}

func TestSQLiteGetDecisionNotFound(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	_, err := j.GetDecision("missing")
	assert.Error(t, err)
}

func TestSQLiteGeneratesDecisionID(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	require.NoError(t, j.RecordDecision(DecisionRecord{
		Strategy: "s1", Symbol: "ES", Outcome: "approved", Approved: true,
		Reason: "ok", Time: time.Now().UTC(),
	}))

	denials, err := j.ListDenials()
	require.NoError(t, err)
	assert.Empty(t, denials)
}
