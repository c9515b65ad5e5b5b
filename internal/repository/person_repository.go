package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

// PersonRepo reads and writes persons and their role profiles.
type PersonRepo struct {
	db *sql.DB
}

// NewPersonRepo returns a PersonRepo bound to db.
func NewPersonRepo(db *sql.DB) *PersonRepo { return &PersonRepo{db: db} }

// FindByID returns the person or sql.ErrNoRows.
func (r *PersonRepo) FindByID(ctx context.Context, id int64) (model.Person, error) {
	var p model.Person
	err := r.db.QueryRowContext(ctx, `SELECT id, name, surname FROM person WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Surname)
	return p, err
}

// Update overwrites the person name fields.
func (r *PersonRepo) Update(ctx context.Context, id int64, in model.PersonInput) error {
	return affectedOrNoRows(r.db.ExecContext(ctx,
		`UPDATE person SET name = ?, surname = ? WHERE id = ?`, in.Name, in.Surname, id))
}

// AddProfilesTx inserts the requested profile rows for the person.
func (r *PersonRepo) AddProfilesTx(ctx context.Context, tx *sql.Tx, personID int64, p model.NewProfile) error {
	if p.Administrator {
		if _, err := tx.ExecContext(ctx, `INSERT INTO administrator (person_id) VALUES (?)`, personID); err != nil {
			return err
		}
	}
	if p.Coach != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO coach (person_id, role) VALUES (?, ?)`, personID, p.Coach.Role); err != nil {
			return err
		}
	}
	if p.Fan {
		if _, err := tx.ExecContext(ctx, `INSERT INTO fan (person_id) VALUES (?)`, personID); err != nil {
			return err
		}
	}
	if p.Player {
		if _, err := tx.ExecContext(ctx, `INSERT INTO player (person_id) VALUES (?)`, personID); err != nil {
			return err
		}
	}
	return nil
}
