package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronExpr is returned when a schedule's cron expression does not
// parse.
var ErrInvalidCronExpr = errors.New("invalid cron expression")

// Schedule binds a flow to a recurring replay time. The engine validates and
// computes fire times; running a scheduler daemon is a collaborator concern.
type Schedule struct {
	ID        string     `json:"id"         validate:"required"`
	FlowID    string     `json:"flow_id"    validate:"required"`
	CronExpr  string     `json:"cron_expr"  validate:"required"`
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"created_at,omitzero"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
}

// Validate parses the cron expression using the standard 5-field format.
func (s *Schedule) Validate() error {
	if _, err := cron.ParseStandard(s.CronExpr); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidCronExpr, s.CronExpr, err)
	}

	return nil
}

// Next computes the next fire time strictly after t.
func (s *Schedule) Next(t time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(s.CronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidCronExpr, s.CronExpr, err)
	}

	return sched.Next(t), nil
}
