// Package authz is the single authorization gate of the service. Every
// guarded operation asks Gate for a decision on (subject, resource, action)
// before any write happens. Rules are evaluated short-circuit in priority
// order: administrator, then ownership, then roles on the involved teams.
package authz

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/metrics"
	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/queue"
	"github.com/iliyamo/sports-facility-booking/internal/repository"
)

// RoleReader answers role graph questions. repository.RoleRepo implements it.
type RoleReader interface {
	IsAdministrator(ctx context.Context, personID int64) (bool, error)
	IsCoachOfTeam(ctx context.Context, personID int64, teamID *int64, activeOnly bool) (bool, error)
	IsPlayerOfTeam(ctx context.Context, personID int64, teamID *int64, activeOnly bool) (bool, error)
	IsResponsibleOfTeam(ctx context.Context, userID, teamID int64, activeOnly bool) (bool, error)
	IsClubResponsible(ctx context.Context, userID int64, clubID *string, activeOnly bool) (bool, error)
	IsPersonWithUser(ctx context.Context, personID int64) (bool, error)
}

// Lookup resolves resource identities. repository.Lookups implements it.
// Missing rows are reported as sql.ErrNoRows.
type Lookup interface {
	FindBookingWithEvent(ctx context.Context, id int64) (model.BookingWithEvent, error)
	FindGame(ctx context.Context, id int64) (model.Game, error)
	FindTraining(ctx context.Context, id int64) (model.Training, error)
	FindFormation(ctx context.Context, id int64) (model.Formation, error)
	FindRecordingSession(ctx context.Context, id int64) (model.RecordingSession, error)
}

// Decision is the outcome of a rule. Reason names the rule that matched, or
// why none did; it is for logs only and never reaches the caller.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Reason: reason} }

const (
	reasonAdministrator   = "administrator"
	reasonAuthor          = "author"
	reasonAuthenticated   = "authenticated"
	reasonTeamStaff       = "team coach or responsible"
	reasonTeamMember      = "team player"
	reasonClubResponsible = "club responsible"
	reasonSamePerson      = "same person"
	reasonNoUser          = "person without user"
	reasonNoRole          = "no matching role"
	reasonNoEvent         = "booking without event"
	reasonUnsupported     = "unsupported action"
)

// Gate evaluates the authorization rules.
type Gate struct {
	roles   RoleReader
	lookup  Lookup
	log     *logrus.Logger
	metrics *metrics.Metrics
	events  queue.Publisher
}

// NewGate builds a Gate. logger, m and events may be nil.
func NewGate(roles RoleReader, lookup Lookup, logger *logrus.Logger, m *metrics.Metrics, events queue.Publisher) *Gate {
	if logger == nil {
		logger = logrus.New()
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &Gate{roles: roles, lookup: lookup, log: logger, metrics: m, events: events}
}

// Authorize returns nil when subject may perform action on res. A denial is
// logged, counted, published as an authz.denied event and returned as an
// apperr Forbidden error that never names the failed rule. Lookup failures
// are returned as NotFound or Store errors.
func (g *Gate) Authorize(ctx context.Context, op string, subject int64, res Resource, action Action) error {
	d, err := g.Decide(ctx, subject, res, action)
	if err != nil {
		return apperr.WithOp(op, err)
	}
	g.metrics.AuthzDecision(op, d.Allowed)
	if d.Allowed {
		g.log.WithFields(logrus.Fields{
			"operation": op, "actor_id": subject, "resource": res.Name(), "resource_id": res.Key(), "reason": d.Reason,
		}).Debug("authorization granted")
		return nil
	}

	g.log.WithFields(logrus.Fields{
		"operation":   op,
		"actor_id":    subject,
		"resource":    res.Name(),
		"resource_id": res.Key(),
		"reason":      d.Reason,
	}).Warn("authorization denied")

	if env, err := queue.NewEnvelope(queue.TypeAuthzDenied, subject, queue.AuthzDenied{
		Operation: op, Resource: res.Name(), ResourceID: res.Key(),
	}); err == nil {
		if err := g.events.Publish(ctx, env); err != nil {
			g.log.WithError(err).WithField("operation", op).Debug("authz.denied event not published")
		}
	}
	return apperr.Forbidden(op, subject, res.Name(), res.Key())
}

// Decide evaluates the rule for (res, action) on behalf of subject.
func (g *Gate) Decide(ctx context.Context, subject int64, res Resource, action Action) (Decision, error) {
	// Booking reads and club creation are open to any authenticated subject
	// and skip the role graph entirely.
	if _, ok := res.(BookingRes); ok && action == ActionRead {
		return allow(reasonAuthenticated), nil
	}
	if _, ok := res.(NewClubRes); ok && action == ActionCreate {
		return allow(reasonAuthenticated), nil
	}
	if !supported(res, action) {
		return deny(reasonUnsupported), nil
	}

	admin, err := g.roles.IsAdministrator(ctx, subject)
	if err != nil {
		return Decision{}, apperr.FromStore("", "administrator", subject, err)
	}
	if admin {
		return allow(reasonAdministrator), nil
	}

	switch r := res.(type) {
	case NewBookingRes:
		return g.canCreateBooking(ctx, subject, r.Data)
	case BookingRes:
		return g.canEditBooking(ctx, subject, r.ID)
	case GameRes:
		game, err := g.lookup.FindGame(ctx, r.ID)
		if err != nil {
			return Decision{}, apperr.FromStore("", "game", r.ID, err)
		}
		return g.canEditBooking(ctx, subject, game.BookingID)
	case TrainingRes:
		tr, err := g.lookup.FindTraining(ctx, r.ID)
		if err != nil {
			return Decision{}, apperr.FromStore("", "training", r.ID, err)
		}
		if action == ActionDelete {
			return g.canEditBooking(ctx, subject, tr.BookingID)
		}
		return g.teamRole(ctx, subject, []int64{tr.TeamID}, action == ActionReadRoster)
	case FormationRes:
		f, err := g.lookup.FindFormation(ctx, r.ID)
		if err != nil {
			return Decision{}, apperr.FromStore("", "formation", r.ID, err)
		}
		return g.teamRole(ctx, subject, []int64{f.TeamID}, action == ActionReadRoster)
	case RecordingSessionRes:
		return g.canUseSession(ctx, subject, r, action)
	case BookingSessionsRes:
		if action == ActionRead {
			return g.canReadBookingRecordings(ctx, subject, r.BookingID)
		}
		return g.canEditBooking(ctx, subject, r.BookingID)
	case ClubRes:
		return g.clubResponsible(ctx, subject, r.ID)
	case NewTeamRes:
		return g.clubResponsible(ctx, subject, r.ClubID)
	case TeamRes:
		if action == ActionDelete {
			return g.teamResponsible(ctx, subject, r.ID)
		}
		return g.teamRole(ctx, subject, []int64{r.ID}, false)
	case PersonRes:
		return g.canEditPerson(ctx, subject, r.ID)
	case TeamMembershipRes:
		if action == ActionLeave {
			d, err := g.samePersonWithUser(ctx, subject, r.PersonID)
			if err != nil || d.Allowed {
				return d, err
			}
		}
		return g.teamRole(ctx, subject, []int64{r.TeamID}, false)
	}
	return deny(reasonUnsupported), nil
}

// supported lists the actions each resource accepts.
func supported(res Resource, action Action) bool {
	switch res.(type) {
	case NewBookingRes:
		return action == ActionCreate
	case BookingRes:
		return action == ActionUpdate || action == ActionDelete
	case GameRes:
		return action == ActionDelete
	case TrainingRes:
		return action == ActionDelete || action == ActionEditRoster || action == ActionReadRoster
	case FormationRes:
		return action == ActionEditRoster || action == ActionReadRoster
	case RecordingSessionRes:
		return action == ActionRead || action == ActionUpdate || action == ActionDelete
	case BookingSessionsRes:
		return action == ActionRead || action == ActionCreate
	case ClubRes:
		return action == ActionUpdate || action == ActionDelete || action == ActionManageResponsibles
	case NewTeamRes:
		return action == ActionCreate
	case TeamRes:
		return action == ActionUpdate || action == ActionDelete
	case PersonRes:
		return action == ActionUpdate || action == ActionAddProfile
	case TeamMembershipRes:
		return action == ActionJoin || action == ActionLeave
	}
	return false
}

func (g *Gate) canCreateBooking(ctx context.Context, subject int64, data model.NewBookingData) (Decision, error) {
	switch ev := data.Event.(type) {
	case model.GameInput:
		return g.teamRole(ctx, subject, ev.TeamIDs(), false)
	case model.TrainingInput:
		return g.teamRole(ctx, subject, []int64{ev.TeamID}, false)
	}
	return deny(reasonNoEvent), nil
}

// canEditBooking is the rule shared by booking update and delete, event
// delete and recording session writes.
func (g *Gate) canEditBooking(ctx context.Context, subject, bookingID int64) (Decision, error) {
	b, err := g.lookup.FindBookingWithEvent(ctx, bookingID)
	if err != nil {
		return Decision{}, apperr.FromStore("", "booking", bookingID, err)
	}
	if repository.IsSamePerson(subject, b.Booking.AuthorID) {
		return allow(reasonAuthor), nil
	}
	teams, err := g.eventTeams(ctx, b.Event)
	if err != nil {
		return Decision{}, err
	}
	return g.teamRole(ctx, subject, teams, false)
}

func (g *Gate) canReadBookingRecordings(ctx context.Context, subject, bookingID int64) (Decision, error) {
	b, err := g.lookup.FindBookingWithEvent(ctx, bookingID)
	if err != nil {
		return Decision{}, apperr.FromStore("", "booking", bookingID, err)
	}
	if repository.IsSamePerson(subject, b.Booking.AuthorID) {
		return allow(reasonAuthor), nil
	}
	teams, err := g.eventTeams(ctx, b.Event)
	if err != nil {
		return Decision{}, err
	}
	return g.teamRole(ctx, subject, teams, true)
}

func (g *Gate) canUseSession(ctx context.Context, subject int64, r RecordingSessionRes, action Action) (Decision, error) {
	s, err := g.lookup.FindRecordingSession(ctx, r.ID)
	if err != nil {
		return Decision{}, apperr.FromStore("", "recording_session", r.ID, err)
	}
	if action == ActionRead {
		if repository.IsSamePerson(subject, s.AuthorID) {
			return allow(reasonAuthor), nil
		}
		return g.canReadBookingRecordings(ctx, subject, s.BookingID)
	}
	d, err := g.canEditBooking(ctx, subject, s.BookingID)
	if err != nil || !d.Allowed {
		return d, err
	}
	if action == ActionUpdate && r.TargetBookingID != 0 && r.TargetBookingID != s.BookingID {
		return g.canEditBooking(ctx, subject, r.TargetBookingID)
	}
	return d, nil
}

func (g *Gate) canEditPerson(ctx context.Context, subject, personID int64) (Decision, error) {
	hasUser, err := g.roles.IsPersonWithUser(ctx, personID)
	if err != nil {
		return Decision{}, apperr.FromStore("", "person", personID, err)
	}
	if !hasUser {
		return allow(reasonNoUser), nil
	}
	if repository.IsSamePerson(subject, personID) {
		return allow(reasonSamePerson), nil
	}
	return deny(reasonNoRole), nil
}

func (g *Gate) samePersonWithUser(ctx context.Context, subject, personID int64) (Decision, error) {
	if !repository.IsSamePerson(subject, personID) {
		return deny(reasonNoRole), nil
	}
	hasUser, err := g.roles.IsPersonWithUser(ctx, personID)
	if err != nil {
		return Decision{}, apperr.FromStore("", "person", personID, err)
	}
	if hasUser {
		return allow(reasonSamePerson), nil
	}
	return deny(reasonNoRole), nil
}

func (g *Gate) clubResponsible(ctx context.Context, subject int64, clubID string) (Decision, error) {
	ok, err := g.roles.IsClubResponsible(ctx, subject, &clubID, true)
	if err != nil {
		return Decision{}, apperr.FromStore("", "sports_club", clubID, err)
	}
	if ok {
		return allow(reasonClubResponsible), nil
	}
	return deny(reasonNoRole), nil
}

// teamResponsible allows only the active club responsibles of the team.
func (g *Gate) teamResponsible(ctx context.Context, subject, teamID int64) (Decision, error) {
	ok, err := g.roles.IsResponsibleOfTeam(ctx, subject, teamID, true)
	if err != nil {
		return Decision{}, apperr.FromStore("", "team", teamID, err)
	}
	if ok {
		return allow(reasonClubResponsible), nil
	}
	return deny(reasonNoRole), nil
}

// eventTeams lists the teams involved in ev: home and visiting teams of a
// game, the team of a training, none without an event.
func (g *Gate) eventTeams(ctx context.Context, ev model.Event) ([]int64, error) {
	switch e := ev.(type) {
	case *model.Game:
		var teams []int64
		for _, fid := range e.FormationIDs() {
			f, err := g.lookup.FindFormation(ctx, fid)
			if err != nil {
				return nil, apperr.FromStore("", "formation", fid, err)
			}
			teams = append(teams, f.TeamID)
		}
		return teams, nil
	case *model.Training:
		return []int64{e.TeamID}, nil
	}
	return nil, nil
}

// teamRole allows when subject is an active coach or club responsible of any
// of the teams, or an active player when players is set.
func (g *Gate) teamRole(ctx context.Context, subject int64, teams []int64, players bool) (Decision, error) {
	for _, id := range teams {
		teamID := id
		if players {
			ok, err := g.roles.IsPlayerOfTeam(ctx, subject, &teamID, true)
			if err != nil {
				return Decision{}, apperr.FromStore("", "team", teamID, err)
			}
			if ok {
				return allow(reasonTeamMember), nil
			}
		}
		ok, err := g.roles.IsCoachOfTeam(ctx, subject, &teamID, true)
		if err != nil {
			return Decision{}, apperr.FromStore("", "team", teamID, err)
		}
		if ok {
			return allow(reasonTeamStaff), nil
		}
		ok, err = g.roles.IsResponsibleOfTeam(ctx, subject, teamID, true)
		if err != nil {
			return Decision{}, apperr.FromStore("", "team", teamID, err)
		}
		if ok {
			return allow(reasonTeamStaff), nil
		}
	}
	return deny(reasonNoRole), nil
}
