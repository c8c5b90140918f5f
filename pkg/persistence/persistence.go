// Package persistence provides the storage abstraction for flows, run
// records, and schedules. The engine only loads, saves, and appends; the
// storage medium is an adapter concern.
package persistence

import (
	"context"

	"github.com/retrace-dev/retrace/pkg/models"
)

// FlowRepository stores captured flows.
type FlowRepository interface {
	Flows(ctx context.Context) ([]*models.Flow, error)
	FlowByID(ctx context.Context, id string) (*models.Flow, error)
	SaveFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, id string) error
}

// RunRepository stores run records. Records are append-only.
type RunRepository interface {
	AppendRun(ctx context.Context, record *models.RunRecord) error
	RunByID(ctx context.Context, runID string) (*models.RunRecord, error)
	RunsByFlow(ctx context.Context, flowID string, limit int) ([]*models.RunRecord, error)
}

// ScheduleRepository stores cron schedules for unattended replays.
type ScheduleRepository interface {
	Schedules(ctx context.Context) ([]*models.Schedule, error)
	ScheduleByID(ctx context.Context, id string) (*models.Schedule, error)
	SaveSchedule(ctx context.Context, schedule *models.Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
}

// Persistence is the composed storage surface an adapter provides.
type Persistence interface {
	FlowRepository() FlowRepository
	RunRepository() RunRepository
	ScheduleRepository() ScheduleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
