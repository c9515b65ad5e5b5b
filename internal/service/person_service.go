package service

import (
	"context"
	"database/sql"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/authz"
	"github.com/iliyamo/sports-facility-booking/internal/database"
	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/repository"
)

// PersonService updates persons and attaches role profiles to them.
type PersonService struct {
	Deps
	persons *repository.PersonRepo
}

func NewPersonService(d Deps) *PersonService {
	d = d.withDefaults()
	return &PersonService{Deps: d, persons: repository.NewPersonRepo(d.DB)}
}

func (s *PersonService) UpdatePerson(ctx context.Context, id int64, in model.PersonInput) (model.Person, error) {
	const op = "update_person"
	if err := in.Validate(); err != nil {
		return model.Person{}, s.done(op, apperr.WithOp(op, err))
	}
	if err := s.persons.Update(ctx, id, in); err != nil {
		return model.Person{}, s.done(op, s.fail(op, "person", id, err))
	}
	return model.Person{ID: id, Name: in.Name, Surname: in.Surname}, s.done(op, nil)
}

// AddProfile attaches the requested profiles to the person at once. A
// profile the person already has is a conflict and nothing is added.
func (s *PersonService) AddProfile(ctx context.Context, id int64, p model.NewProfile) error {
	const op = "add_profile"
	if err := p.Validate(); err != nil {
		return s.done(op, apperr.WithOp(op, err))
	}
	if _, err := s.persons.FindByID(ctx, id); err != nil {
		return s.done(op, s.fail(op, "person", id, err))
	}
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		return s.persons.AddProfilesTx(ctx, tx, id, p)
	})
	if err != nil {
		return s.done(op, s.fail(op, "person", id, err))
	}
	return s.done(op, nil)
}

func (s *PersonService) AuthorizedUpdatePerson(ctx context.Context, c model.Claims, id int64, in model.PersonInput) (model.Person, error) {
	ctx, err := s.authorize(ctx, "update_person", c.SubjectID, authz.PersonRes{ID: id}, authz.ActionUpdate)
	if err != nil {
		return model.Person{}, err
	}
	return s.UpdatePerson(ctx, id, in)
}

func (s *PersonService) AuthorizedAddProfile(ctx context.Context, c model.Claims, id int64, p model.NewProfile) error {
	ctx, err := s.authorize(ctx, "add_profile", c.SubjectID, authz.PersonRes{ID: id}, authz.ActionAddProfile)
	if err != nil {
		return err
	}
	return s.AddProfile(ctx, id, p)
}
