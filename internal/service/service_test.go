package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sports-facility-booking/internal/authz"
	"github.com/iliyamo/sports-facility-booking/internal/metrics"
	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/queue"
)

var (
	fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	slotFrom = time.Date(2024, 5, 2, 18, 0, 0, 0, time.UTC)
	slotTo   = time.Date(2024, 5, 2, 20, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, env queue.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// denyAllRoles holds no role at all. Every person has a user.
type denyAllRoles struct{}

func (denyAllRoles) IsAdministrator(context.Context, int64) (bool, error) { return false, nil }
func (denyAllRoles) IsCoachOfTeam(context.Context, int64, *int64, bool) (bool, error) {
	return false, nil
}
func (denyAllRoles) IsPlayerOfTeam(context.Context, int64, *int64, bool) (bool, error) {
	return false, nil
}
func (denyAllRoles) IsResponsibleOfTeam(context.Context, int64, int64, bool) (bool, error) {
	return false, nil
}
func (denyAllRoles) IsClubResponsible(context.Context, int64, *string, bool) (bool, error) {
	return false, nil
}
func (denyAllRoles) IsPersonWithUser(context.Context, int64) (bool, error) { return true, nil }

type emptyLookup struct{}

func (emptyLookup) FindBookingWithEvent(context.Context, int64) (model.BookingWithEvent, error) {
	return model.BookingWithEvent{}, sql.ErrNoRows
}
func (emptyLookup) FindGame(context.Context, int64) (model.Game, error) {
	return model.Game{}, sql.ErrNoRows
}
func (emptyLookup) FindTraining(context.Context, int64) (model.Training, error) {
	return model.Training{}, sql.ErrNoRows
}
func (emptyLookup) FindFormation(context.Context, int64) (model.Formation, error) {
	return model.Formation{}, sql.ErrNoRows
}
func (emptyLookup) FindRecordingSession(context.Context, int64) (model.RecordingSession, error) {
	return model.RecordingSession{}, sql.ErrNoRows
}

type testEnv struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	deps    Deps
	hook    *test.Hook
	events  *recordingPublisher
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, hook := test.NewNullLogger()
	m := metrics.New(prometheus.NewRegistry())
	pub := &recordingPublisher{}
	return &testEnv{
		db:      db,
		mock:    mock,
		hook:    hook,
		events:  pub,
		metrics: m,
		deps: Deps{
			DB:      db,
			Gate:    authz.NewGate(denyAllRoles{}, emptyLookup{}, logger, m, pub),
			Log:     logger,
			Metrics: m,
			Events:  pub,
			Now:     func() time.Time { return fixedNow },
		},
	}
}

var bookingColumns = []string{
	"b.id", "b.author_id", "b.start_datetime", "b.end_datetime", "b.sport", "b.notes",
	"g.id", "g.home_formation_id", "g.visiting_formation_id", "g.start_datetime", "g.end_datetime",
	"t.id", "t.team_id", "t.start_datetime", "t.end_datetime",
}

// bookingRow renders one left-joined booking row. game and training are
// the event columns, nil for none.
func bookingRow(id, author int64, game, training []driver.Value) *sqlmock.Rows {
	row := []driver.Value{id, author, slotFrom, slotTo, "volleyball", nil}
	if game == nil {
		game = []driver.Value{nil, nil, nil, nil, nil}
	}
	if training == nil {
		training = []driver.Value{nil, nil, nil, nil}
	}
	row = append(row, game...)
	row = append(row, training...)
	return sqlmock.NewRows(bookingColumns).AddRow(row...)
}
