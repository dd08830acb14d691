package reservation

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// createRequest also accepts the older single computerId field.
type createRequest struct {
	TeamID      string     `json:"teamId" validate:"required"`
	ComputerIDs []int64    `json:"computerIds" validate:"omitempty,dive,gt=0"`
	ComputerID  *int64     `json:"computerId" validate:"omitempty,gt=0"`
	StartsAt    *time.Time `json:"startsAt" validate:"required"`
	EndsAt      *time.Time `json:"endsAt" validate:"required"`
}

func (r createRequest) input() CreateInput {
	ids := r.ComputerIDs
	if len(ids) == 0 && r.ComputerID != nil {
		ids = []int64{*r.ComputerID}
	}
	return CreateInput{
		TeamID:      r.TeamID,
		ComputerIDs: ids,
		StartsAt:    *r.StartsAt,
		EndsAt:      *r.EndsAt,
	}
}

type updateRequest struct {
	GroupID string `json:"groupId" validate:"required"`
	createRequest
}

type deleteResponse struct {
	GroupID string `json:"groupId"`
	Deleted int64  `json:"deleted"`
}

type dryRunResponse struct {
	DryRun      bool      `json:"dryRun"`
	Cutoff      time.Time `json:"cutoff"`
	WouldDelete int64     `json:"wouldDelete"`
}

type purgeResponse struct {
	Cutoff  time.Time `json:"cutoff"`
	Deleted int64     `json:"deleted"`
}

// parseFilter reads computerId, teamId, start and end query parameters.
func parseFilter(q url.Values) (Filter, error) {
	var f Filter
	f.TeamID = strings.TrimSpace(q.Get("teamId"))

	if raw := q.Get("computerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Filter{}, fmt.Errorf("computerId must be a positive integer")
		}
		f.ComputerID = &id
	}

	start, end := q.Get("start"), q.Get("end")
	if start != "" && end != "" {
		s, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return Filter{}, fmt.Errorf("start must be an RFC3339 timestamp")
		}
		e, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return Filter{}, fmt.Errorf("end must be an RFC3339 timestamp")
		}
		s, e = s.UTC(), e.UTC()
		f.Start, f.End = &s, &e
	}
	return f, nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
