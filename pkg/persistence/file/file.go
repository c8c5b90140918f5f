// Package file provides file-backed persistence: one JSON file per flow,
// schedule, and run record under a root directory.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/retrace-dev/retrace/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root      string
	flows     *FlowRepository
	runs      *RunRepository
	schedules *ScheduleRepository
}

// NewPersistence creates file persistence rooted at the given directory. A
// file:// prefix is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:      cleanRoot,
		flows:     NewFlowRepository(cleanRoot),
		runs:      NewRunRepository(cleanRoot),
		schedules: NewScheduleRepository(cleanRoot),
	}
}

func (p *Persistence) FlowRepository() persistence.FlowRepository { return p.flows }

func (p *Persistence) RunRepository() persistence.RunRepository { return p.runs }

func (p *Persistence) ScheduleRepository() persistence.ScheduleRepository { return p.schedules }

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); err != nil {
		return err
	}

	return nil
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}
