package blackout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"esports-scheduler/internal/domain"
	"esports-scheduler/internal/domain/computer"
)

var ErrUnknownComputer = errors.New("computer does not exist")

const maxReasonLen = 500

type CreateInput struct {
	StartsAt   time.Time
	EndsAt     time.Time
	Scope      Scope
	ComputerID *int64
	Reason     string
}

type Service struct {
	repo      Repository
	computers computer.Repository
	policy    *bluemonday.Policy
	log       *zap.Logger
}

func NewService(repo Repository, computers computer.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		computers: computers,
		policy:    bluemonday.StrictPolicy(),
		log:       logger,
	}
}

func (s *Service) List(ctx context.Context, iv *domain.Interval) ([]Window, error) {
	return s.repo.List(ctx, iv)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Window, error) {
	w := &Window{
		StartsAt:   in.StartsAt.UTC(),
		EndsAt:     in.EndsAt.UTC(),
		Scope:      Scope(strings.ToUpper(strings.TrimSpace(string(in.Scope)))),
		ComputerID: in.ComputerID,
		Reason:     s.sanitize(in.Reason),
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	if w.ComputerID != nil {
		if _, err := s.computers.GetByID(ctx, *w.ComputerID); err != nil {
			if errors.Is(err, computer.ErrNotFound) {
				return nil, ErrUnknownComputer
			}
			return nil, fmt.Errorf("lookup computer: %w", err)
		}
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create blackout: %w", err)
	}

	s.log.Info("blackout created",
		zap.Int64("blackout_id", w.ID),
		zap.String("scope", string(w.Scope)),
		zap.Time("starts_at", w.StartsAt),
		zap.Time("ends_at", w.EndsAt),
	)
	return w, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("blackout deleted", zap.Int64("blackout_id", id))
	return nil
}

// sanitize strips markup; reasons are shown verbatim on the schedule board.
func (s *Service) sanitize(reason string) string {
	reason = strings.TrimSpace(s.policy.Sanitize(reason))
	if len(reason) > maxReasonLen {
		cut := maxReasonLen
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut]
	}
	return reason
}
