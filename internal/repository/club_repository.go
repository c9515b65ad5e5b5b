package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

// ClubRepo reads and writes sports clubs and their responsible edges.
type ClubRepo struct {
	db *sql.DB
}

// NewClubRepo returns a ClubRepo bound to db.
func NewClubRepo(db *sql.DB) *ClubRepo { return &ClubRepo{db: db} }

const clubSelect = `SELECT vat_number, name, address, city, phone FROM sports_club WHERE vat_number = ?`

func scanClub(s rowScanner) (model.SportsClub, error) {
	var (
		c                    model.SportsClub
		address, city, phone sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &address, &city, &phone); err != nil {
		return model.SportsClub{}, err
	}
	c.Address, c.City, c.Phone = stringPtr(address), stringPtr(city), stringPtr(phone)
	return c, nil
}

// FindByID returns the club keyed by its VAT number, or sql.ErrNoRows.
func (r *ClubRepo) FindByID(ctx context.Context, id string) (model.SportsClub, error) {
	return scanClub(r.db.QueryRowContext(ctx, clubSelect, id))
}

// LockTx returns the club row locked until tx ends.
func (r *ClubRepo) LockTx(ctx context.Context, tx *sql.Tx, id string) (model.SportsClub, error) {
	return scanClub(tx.QueryRowContext(ctx, clubSelect+` FOR UPDATE`, id))
}

// CreateTx inserts the club. A taken VAT number fails with a duplicate key.
func (r *ClubRepo) CreateTx(ctx context.Context, tx *sql.Tx, c model.SportsClub) error {
	const q = `INSERT INTO sports_club (vat_number, name, address, city, phone) VALUES (?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, c.ID, c.Name, c.Address, c.City, c.Phone)
	return err
}

// Update overwrites name and contact fields of the club.
func (r *ClubRepo) Update(ctx context.Context, c model.SportsClub) error {
	const q = `UPDATE sports_club SET name = ?, address = ?, city = ?, phone = ? WHERE vat_number = ?`
	return affectedOrNoRows(r.db.ExecContext(ctx, q, c.Name, c.Address, c.City, c.Phone, c.ID))
}

// DeleteTx removes the responsible edges and then the club. Teams still
// referencing the club make the store reject the delete.
func (r *ClubRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_club WHERE club_id = ?`, id); err != nil {
		return err
	}
	return affectedOrNoRows(tx.ExecContext(ctx, `DELETE FROM sports_club WHERE vat_number = ?`, id))
}

// AddResponsible opens a new responsible edge starting at since.
func (r *ClubRepo) AddResponsible(ctx context.Context, clubID string, userID int64, since time.Time) error {
	return addResponsible(ctx, r.db, clubID, userID, since)
}

// AddResponsibleTx is AddResponsible on the caller's transaction.
func (r *ClubRepo) AddResponsibleTx(ctx context.Context, tx *sql.Tx, clubID string, userID int64, since time.Time) error {
	return addResponsible(ctx, tx, clubID, userID, since)
}

func addResponsible(ctx context.Context, q DBTX, clubID string, userID int64, since time.Time) error {
	const query = `INSERT INTO user_club (user_id, club_id, since_date, until_date) VALUES (?, ?, ?, NULL)`
	_, err := q.ExecContext(ctx, query, userID, clubID, since)
	return err
}

// ActiveResponsiblesTx returns the users holding an active edge on the club.
// The rows stay locked until tx ends so concurrent removals serialize.
func (r *ClubRepo) ActiveResponsiblesTx(ctx context.Context, tx *sql.Tx, clubID string) ([]int64, error) {
	const q = `SELECT user_id FROM user_club WHERE club_id = ? AND until_date IS NULL FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EndResponsibleTx stamps until on the active edge of userID. The row is kept.
func (r *ClubRepo) EndResponsibleTx(ctx context.Context, tx *sql.Tx, clubID string, userID int64, until time.Time) error {
	const q = `UPDATE user_club SET until_date = ? WHERE club_id = ? AND user_id = ? AND until_date IS NULL`
	return affectedOrNoRows(tx.ExecContext(ctx, q, until, clubID, userID))
}
