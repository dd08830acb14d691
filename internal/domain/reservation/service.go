package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"esports-scheduler/internal/domain"
	"esports-scheduler/internal/domain/blackout"
	"esports-scheduler/internal/domain/computer"
	"esports-scheduler/internal/domain/team"
	"esports-scheduler/internal/domain/user"
	"esports-scheduler/internal/notify"
	"esports-scheduler/internal/obs"
)

// Caller is the identity resolved by the auth middleware.
type Caller struct {
	ID      string
	IsAdmin bool
}

type CreateInput struct {
	TeamID      string
	ComputerIDs []int64
	StartsAt    time.Time
	EndsAt      time.Time
}

type UpdateInput = CreateInput

type Deps struct {
	DB           *gorm.DB
	Reservations Repository
	Computers    computer.Repository
	Teams        team.Repository
	Users        user.Repository
	Blackouts    blackout.Repository
	Notifier     notify.Publisher
	Metrics      *obs.Metrics
	Logger       *zap.Logger
}

// Service is the booking engine. Every write runs in one transaction that
// locks the requested computers before checking blackouts and overlaps.
type Service struct {
	db           *gorm.DB
	reservations Repository
	computers    computer.Repository
	teams        team.Repository
	users        user.Repository
	blackouts    blackout.Repository
	notifier     notify.Publisher
	metrics      *obs.Metrics
	log          *zap.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:           d.DB,
		reservations: d.Reservations,
		computers:    d.Computers,
		teams:        d.Teams,
		users:        d.Users,
		blackouts:    d.Blackouts,
		notifier:     d.Notifier,
		metrics:      d.Metrics,
		log:          logger,
		tracer:       otel.Tracer("esports-scheduler/reservation"),
		now:          time.Now,
	}
}

// SetClock overrides the time source used for the implicit purge cutoff.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

type booking struct {
	teamID      string
	computerIDs []int64
	interval    domain.Interval
}

func (s *Service) Create(ctx context.Context, caller Caller, in CreateInput) (*Group, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Create")
	defer span.End()

	b, err := s.prepare(ctx, caller, in)
	if err != nil {
		return nil, s.finish(span, "create", err)
	}
	groupID := uuid.NewString()
	span.SetAttributes(attribute.String("group.id", groupID), attribute.Int("computers", len(b.computerIDs)))

	var out *Group
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guard(ctx, tx, b, ""); err != nil {
			return err
		}
		store := s.reservations.WithTx(tx)
		if _, err := store.CreateGroup(ctx, groupID, b.teamID, b.computerIDs, b.interval, caller.ID); err != nil {
			return err
		}
		g, err := store.GetGroup(ctx, groupID)
		out = g
		return err
	})
	if err != nil {
		return nil, s.finish(span, "create", translate(err))
	}

	s.log.Info("reservation group created",
		zap.String("group_id", groupID),
		zap.String("team_id", b.teamID),
		zap.Int64s("computer_ids", b.computerIDs),
		zap.String("by", caller.ID),
	)
	s.publish(ctx, notify.EventCreated, groupID)
	return out, s.finish(span, "create", nil)
}

// Update replaces the group's computers and window in place. The original
// creator is kept; the group's own rows never count as conflicts. Editing a
// derived legacy id gives its rows a fresh group id, which the result carries.
func (s *Service) Update(ctx context.Context, caller Caller, groupID string, in UpdateInput) (*Group, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Update", trace.WithAttributes(attribute.String("group.id", groupID)))
	defer span.End()

	if !caller.IsAdmin {
		return nil, s.finish(span, "update", ErrForbidden)
	}
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, s.finish(span, "update", invalid("groupId is required"))
	}
	b, err := s.prepare(ctx, caller, in)
	if err != nil {
		return nil, s.finish(span, "update", err)
	}

	var out *Group
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.reservations.WithTx(tx)
		existing, err := store.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			return ErrNotFound
		}
		if isLegacyID(groupID) {
			// the edited legacy cluster becomes a real group
			adopted := uuid.NewString()
			if err := store.AssignGroup(ctx, rowIDs(existing), adopted); err != nil {
				return err
			}
			groupID = adopted
		}
		if err := s.guard(ctx, tx, b, groupID); err != nil {
			return err
		}
		if _, err := store.ReplaceGroup(ctx, groupID, b.teamID, b.computerIDs, b.interval, existing[0].CreatedByUserID); err != nil {
			return err
		}
		g, err := store.GetGroup(ctx, groupID)
		out = g
		return err
	})
	if err != nil {
		return nil, s.finish(span, "update", translate(err))
	}

	s.log.Info("reservation group updated",
		zap.String("group_id", groupID),
		zap.Int64s("computer_ids", b.computerIDs),
		zap.String("by", caller.ID),
	)
	s.publish(ctx, notify.EventUpdated, groupID)
	return out, s.finish(span, "update", nil)
}

func (s *Service) Delete(ctx context.Context, caller Caller, groupID string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Delete", trace.WithAttributes(attribute.String("group.id", groupID)))
	defer span.End()

	if !caller.IsAdmin {
		return 0, s.finish(span, "delete", ErrForbidden)
	}
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return 0, s.finish(span, "delete", invalid("groupId is required"))
	}

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.reservations.WithTx(tx).DeleteGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, s.finish(span, "delete", translate(err))
	}

	s.log.Info("reservation group deleted", zap.String("group_id", groupID), zap.Int64("rows", deleted), zap.String("by", caller.ID))
	s.publish(ctx, notify.EventDeleted, groupID)
	return deleted, s.finish(span, "delete", nil)
}

// DeleteReservation removes a single row. Its group stays if other rows
// remain, so viewers get an update event in that case.
func (s *Service) DeleteReservation(ctx context.Context, caller Caller, id string) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.DeleteReservation", trace.WithAttributes(attribute.String("reservation.id", id)))
	defer span.End()

	if !caller.IsAdmin {
		return nil, s.finish(span, "delete", ErrForbidden)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, s.finish(span, "delete", invalid("reservation id is required"))
	}

	var (
		removed   *Reservation
		remaining int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.reservations.WithTx(tx)
		row, err := store.DeleteRow(ctx, id)
		if err != nil {
			return err
		}
		removed = row
		groupID, _ := groupKey(*row)
		remaining, err = store.CountGroup(ctx, groupID)
		return err
	})
	if err != nil {
		return nil, s.finish(span, "delete", translate(err))
	}

	groupID, _ := groupKey(*removed)
	s.log.Info("reservation deleted",
		zap.String("reservation_id", id),
		zap.String("group_id", groupID),
		zap.Int64("remaining", remaining),
		zap.String("by", caller.ID),
	)
	if remaining > 0 {
		s.publish(ctx, notify.EventUpdated, groupID)
	} else {
		s.publish(ctx, notify.EventDeleted, groupID)
	}
	return removed, s.finish(span, "delete", nil)
}

// Purge removes rows that ended strictly before cutoff. A zero cutoff means
// the start of the current UTC month. No change events are published.
func (s *Service) Purge(ctx context.Context, cutoff time.Time, dryRun bool) (*PurgeResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Purge")
	defer span.End()

	if cutoff.IsZero() {
		cutoff = domain.StartOfMonthUTC(s.now())
	}
	res := &PurgeResult{Cutoff: cutoff.UTC(), DryRun: dryRun}
	span.SetAttributes(attribute.String("cutoff", res.Cutoff.Format(time.RFC3339)), attribute.Bool("dry_run", dryRun))

	var err error
	if dryRun {
		res.Count, err = s.reservations.CountBefore(ctx, res.Cutoff)
	} else {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			n, err := s.reservations.WithTx(tx).PurgeBefore(ctx, res.Cutoff)
			res.Count = n
			return err
		})
	}
	if err != nil {
		return nil, s.finish(span, "purge", err)
	}

	if !dryRun {
		s.metrics.AddPurged(res.Count)
	}
	s.log.Info("reservations purged",
		zap.Time("cutoff", res.Cutoff),
		zap.Bool("dry_run", dryRun),
		zap.Int64("count", res.Count),
	)
	return res, s.finish(span, "purge", nil)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Reservation, error) {
	return s.reservations.ListRows(ctx, f)
}

func (s *Service) ListGrouped(ctx context.Context, f Filter) ([]Group, error) {
	return s.reservations.ListGrouped(ctx, f)
}

// prepare runs the checks that need no transaction.
func (s *Service) prepare(ctx context.Context, caller Caller, in CreateInput) (booking, error) {
	if !caller.IsAdmin {
		return booking{}, ErrForbidden
	}

	teamID := strings.TrimSpace(in.TeamID)
	ids := dedupe(in.ComputerIDs)

	var problems []string
	if teamID == "" {
		problems = append(problems, "teamId is required")
	}
	if len(ids) == 0 {
		problems = append(problems, "at least one computerId is required")
	}
	var iv domain.Interval
	switch {
	case in.StartsAt.IsZero() || in.EndsAt.IsZero():
		problems = append(problems, "startsAt and endsAt are required")
	default:
		var err error
		if iv, err = domain.NewInterval(in.StartsAt, in.EndsAt); err != nil {
			problems = append(problems, "startsAt must be before endsAt")
		}
	}
	if len(problems) > 0 {
		return booking{}, &ValidationError{Message: strings.Join(problems, "; ")}
	}

	ok, err := s.teams.Exists(ctx, teamID)
	if err != nil {
		return booking{}, fmt.Errorf("check team: %w", err)
	}
	if !ok {
		return booking{}, invalid("unknown teamId %q", teamID)
	}

	ok, missing, err := s.computers.AreAllActive(ctx, ids)
	if err != nil {
		return booking{}, err
	}
	if !ok {
		return booking{}, inactiveComputers(missing)
	}

	ok, err = s.users.Exists(ctx, caller.ID)
	if err != nil {
		return booking{}, fmt.Errorf("check caller: %w", err)
	}
	if !ok {
		return booking{}, ErrUnknownCaller
	}

	return booking{teamID: teamID, computerIDs: ids, interval: iv}, nil
}

// guard takes the computer row locks, then rejects blackouts and overlaps.
func (s *Service) guard(ctx context.Context, tx *gorm.DB, b booking, excludeGroupID string) error {
	missing, err := s.computers.WithTx(tx).LockForBooking(ctx, b.computerIDs)
	if err != nil {
		return err
	}
	// re-checked under the lock: a deactivation may have landed since prepare
	if len(missing) > 0 {
		return inactiveComputers(missing)
	}

	blocked, w, err := s.blackouts.WithTx(tx).HasBlackoutOverlapping(ctx, b.interval, b.computerIDs)
	if err != nil {
		return fmt.Errorf("check blackouts: %w", err)
	}
	if blocked {
		return &BlackoutConflictError{Window: *w}
	}

	conflicts, err := s.reservations.WithTx(tx).FindConflicts(ctx, b.interval, b.computerIDs, StatusConfirmed, excludeGroupID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return newBookingConflict(conflicts)
	}
	return nil
}

// publish runs after commit; the write has happened whether or not anyone hears about it.
func (s *Service) publish(ctx context.Context, t notify.EventType, groupID string) {
	if s.notifier == nil {
		return
	}
	ev := notify.ChangeEvent{Type: t, GroupID: groupID}
	if err := s.notifier.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("change notification failed",
			zap.String("type", string(t)),
			zap.String("group_id", groupID),
			zap.Error(err),
		)
	}
}

func (s *Service) finish(span trace.Span, op string, err error) error {
	s.metrics.ObserveBooking(op, resultOf(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func resultOf(err error) string {
	var (
		verr *ValidationError
		berr *BlackoutConflictError
	)
	switch {
	case err == nil:
		return obs.ResultOK
	case errors.As(err, &berr):
		return obs.ResultBlackout
	case errors.Is(err, ErrConflict), errors.Is(err, ErrConcurrentUpdate):
		return obs.ResultConflict
	case errors.As(err, &verr), errors.Is(err, ErrForbidden), errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownCaller):
		return obs.ResultInvalid
	default:
		return obs.ResultError
	}
}

// translate maps Postgres contention aborts to ErrConcurrentUpdate.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrConcurrentUpdate, pgErr.Message)
		}
	}
	return err
}

func inactiveComputers(ids []int64) *ValidationError {
	return &ValidationError{
		Message:     "invalid or inactive computerId(s): " + joinIDs(ids),
		ComputerIDs: ids,
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
