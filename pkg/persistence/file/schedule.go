package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/persistence"
)

// ScheduleRepository stores one <id>.json per schedule under
// <root>/schedules.
type ScheduleRepository struct {
	root string
}

func NewScheduleRepository(root string) *ScheduleRepository {
	return &ScheduleRepository{root: root}
}

func (r *ScheduleRepository) dir() string {
	return filepath.Join(r.root, "schedules")
}

func (r *ScheduleRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

func (r *ScheduleRepository) Schedules(ctx context.Context) ([]*models.Schedule, error) {
	entries, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, &persistence.StoreError{Op: "list", Subject: "schedules", Err: err}
	}

	sort.Strings(entries)

	schedules := make([]*models.Schedule, 0, len(entries))

	for _, entry := range entries {
		schedule, err := r.ScheduleByID(ctx, strings.TrimSuffix(entry, ".json"))
		if err != nil {
			return nil, err
		}

		schedules = append(schedules, schedule)
	}

	return schedules, nil
}

func (r *ScheduleRepository) ScheduleByID(_ context.Context, id string) (*models.Schedule, error) {
	data, err := os.ReadFile(r.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.ErrScheduleNotFound
	}

	if err != nil {
		return nil, &persistence.StoreError{Op: "read", Subject: "schedule " + id, Err: err}
	}

	schedule := &models.Schedule{}
	if err := json.Unmarshal(data, schedule); err != nil {
		return nil, &persistence.StoreError{Op: "decode", Subject: "schedule " + id, Err: err}
	}

	return schedule, nil
}

func (r *ScheduleRepository) SaveSchedule(_ context.Context, schedule *models.Schedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return &persistence.StoreError{Op: "mkdir", Subject: "schedules", Err: err}
	}

	data, err := json.MarshalIndent(schedule, "", "  ")
	if err != nil {
		return &persistence.StoreError{Op: "encode", Subject: "schedule " + schedule.ID, Err: err}
	}

	if err := os.WriteFile(r.path(schedule.ID), data, fileMode); err != nil {
		return &persistence.StoreError{Op: "write", Subject: "schedule " + schedule.ID, Err: err}
	}

	return nil
}

func (r *ScheduleRepository) DeleteSchedule(_ context.Context, id string) error {
	err := os.Remove(r.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return persistence.ErrScheduleNotFound
	}

	if err != nil {
		return &persistence.StoreError{Op: "delete", Subject: "schedule " + id, Err: err}
	}

	return nil
}
