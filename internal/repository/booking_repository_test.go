package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

func TestBookingListBuildsFilters(t *testing.T) {
	mock, db := beginMock(t)
	author := int64(42)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	sport := "volleyball"
	limit, offset := int64(10), int64(20)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.author_id = ? AND b.start_datetime >= ? AND b.sport = ? ORDER BY b.start_datetime, b.id LIMIT ? OFFSET ?")).
		WithArgs(42, from, "volleyball", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"b.id"}))

	_, err := NewBookingRepo(db).List(context.Background(), model.BookingFilter{
		AuthorID: &author, From: &from, Sport: &sport, Limit: &limit, Offset: &offset,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingListOffsetWithoutLimit(t *testing.T) {
	mock, db := beginMock(t)
	offset := int64(5)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY b.start_datetime, b.id LIMIT 18446744073709551615 OFFSET ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"b.id"}))

	out, err := NewBookingRepo(db).List(context.Background(), model.BookingFilter{Offset: &offset})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestFindWithEventRejectsDoubleEvent(t *testing.T) {
	mock, db := beginMock(t)
	start := time.Date(2024, 5, 2, 18, 0, 0, 0, time.UTC)
	cols := []string{
		"b.id", "b.author_id", "b.start_datetime", "b.end_datetime", "b.sport", "b.notes",
		"g.id", "g.home_formation_id", "g.visiting_formation_id", "g.start_datetime", "g.end_datetime",
		"t.id", "t.team_id", "t.start_datetime", "t.end_datetime",
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.id = ?")).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			int64(1), int64(42), start, start.Add(2*time.Hour), "volleyball", nil,
			int64(500), int64(1000), nil, start, nil,
			int64(600), int64(300), start, nil,
		))

	_, err := NewBookingRepo(db).FindWithEvent(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCorruptAggregate)
}
