// Package service implements the booking aggregate, roster, recording and
// club/team/person operations on top of the repositories. Every operation
// comes in two flavours: a raw one for internal composition and an
// Authorized one that takes the caller claims and asks the authorization
// gate before any write.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/authz"
	"github.com/iliyamo/sports-facility-booking/internal/metrics"
	"github.com/iliyamo/sports-facility-booking/internal/queue"
	"github.com/iliyamo/sports-facility-booking/internal/repository"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	DB      *sql.DB
	Gate    *authz.Gate
	Log     *logrus.Logger
	Metrics *metrics.Metrics
	Events  queue.Publisher
	// Now stamps since/until dates. Defaults to the UTC wall clock.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = logrus.New()
	}
	if d.Events == nil {
		d.Events = queue.NopPublisher{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

type actorKey struct{}

// withActor records the subject of an authorized call so events published by
// the raw operation carry it.
func withActor(ctx context.Context, subject int64) context.Context {
	return context.WithValue(ctx, actorKey{}, subject)
}

func actorFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(actorKey{}).(int64)
	return id
}

// authorize runs the gate and tags ctx with the subject on success.
func (d Deps) authorize(ctx context.Context, op string, subject int64, res authz.Resource, action authz.Action) (context.Context, error) {
	if err := d.Gate.Authorize(ctx, op, subject, res, action); err != nil {
		return ctx, err
	}
	return withActor(ctx, subject), nil
}

// fail turns a repository error into an apperr value. Store failures are
// logged and counted here, once; errors that already carry a kind pass
// through with op filled in.
func (d Deps) fail(op, resource string, id any, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return apperr.WithOp(op, err)
	}
	switch {
	case repository.IsDuplicateKey(err):
		return apperr.Conflict(op, resource, id, "already exists")
	case repository.IsReferenced(err):
		return apperr.Conflict(op, resource, id, "still referenced by other resources")
	case repository.IsMissingReference(err):
		return apperr.Validationf("%s %v references a resource that does not exist", resource, id)
	}
	out := apperr.FromStore(op, resource, id, err)
	if errors.Is(out, apperr.ErrStore) {
		d.Log.WithError(err).WithFields(logrus.Fields{
			"operation":   op,
			"resource":    resource,
			"resource_id": id,
		}).Error("store failure")
		d.Metrics.StoreError(op)
	}
	return out
}

// done counts the outcome of op and returns err unchanged.
func (d Deps) done(op string, err error) error {
	if err != nil {
		d.Metrics.Operation(op, metrics.OutcomeError)
		return err
	}
	d.Metrics.Operation(op, metrics.OutcomeOK)
	return nil
}

// publish emits a domain event after commit. Failures are logged and never
// reach the caller.
func (d Deps) publish(ctx context.Context, typ string, payload any) {
	env, err := queue.NewEnvelope(typ, actorFrom(ctx), payload)
	if err != nil {
		d.Log.WithError(err).WithField("type", typ).Warn("event not built")
		return
	}
	if err := d.Events.Publish(ctx, env); err != nil {
		d.Log.WithError(err).WithField("type", typ).Warn("event not published")
	}
}
