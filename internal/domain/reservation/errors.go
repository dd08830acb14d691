package reservation

import (
	"errors"
	"fmt"
	"strings"

	"esports-scheduler/internal/domain/blackout"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("reservation group not found")
	ErrUnknownCaller = errors.New("caller account does not exist")

	// ErrConflict matches both blackout and booking conflicts via errors.Is.
	ErrConflict = errors.New("conflict")

	// ErrConcurrentUpdate is returned when the database aborts the
	// transaction under contention; the request is safe to retry.
	ErrConcurrentUpdate = errors.New("concurrent update, retry")
)

type ValidationError struct {
	Message     string
	ComputerIDs []int64
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type BlackoutConflictError struct {
	Window blackout.Window
}

func (e *BlackoutConflictError) Error() string {
	if e.Window.Reason != "" {
		return "time is blocked by a blackout window: " + e.Window.Reason
	}
	return "time is blocked by a blackout window"
}

func (e *BlackoutConflictError) Is(target error) bool { return target == ErrConflict }

// BookingConflictError names the computers already reserved in the window.
type BookingConflictError struct {
	Labels      []string
	ComputerIDs []int64
}

func (e *BookingConflictError) Error() string {
	if len(e.Labels) == 0 {
		return "overlapping reservation exists"
	}
	return "already reserved for: " + strings.Join(e.Labels, ", ")
}

func (e *BookingConflictError) Is(target error) bool { return target == ErrConflict }

func newBookingConflict(rows []Reservation) *BookingConflictError {
	out := &BookingConflictError{}
	seen := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.ComputerID]; ok {
			continue
		}
		seen[r.ComputerID] = struct{}{}
		out.ComputerIDs = append(out.ComputerIDs, r.ComputerID)
		label := fmt.Sprintf("#%d", r.ComputerID)
		if r.Computer != nil && r.Computer.Label != "" {
			label = r.Computer.Label
		}
		out.Labels = append(out.Labels, label)
	}
	return out
}
