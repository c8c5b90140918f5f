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

// RunRepository stores one <runId>.json per run record under <root>/runs.
type RunRepository struct {
	root string
}

func NewRunRepository(root string) *RunRepository {
	return &RunRepository{root: root}
}

func (r *RunRepository) dir() string {
	return filepath.Join(r.root, "runs")
}

func (r *RunRepository) path(runID string) string {
	return filepath.Join(r.dir(), runID+".json")
}

func (r *RunRepository) AppendRun(_ context.Context, record *models.RunRecord) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return &persistence.StoreError{Op: "mkdir", Subject: "runs", Err: err}
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return &persistence.StoreError{Op: "encode", Subject: "run " + record.RunID, Err: err}
	}

	if err := os.WriteFile(r.path(record.RunID), data, fileMode); err != nil {
		return &persistence.StoreError{Op: "write", Subject: "run " + record.RunID, Err: err}
	}

	return nil
}

func (r *RunRepository) RunByID(_ context.Context, runID string) (*models.RunRecord, error) {
	data, err := os.ReadFile(r.path(runID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.ErrRunNotFound
	}

	if err != nil {
		return nil, &persistence.StoreError{Op: "read", Subject: "run " + runID, Err: err}
	}

	record := &models.RunRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, &persistence.StoreError{Op: "decode", Subject: "run " + runID, Err: err}
	}

	return record, nil
}

// RunsByFlow returns records for one flow, most recent first. A limit of
// zero means all.
func (r *RunRepository) RunsByFlow(ctx context.Context, flowID string, limit int) ([]*models.RunRecord, error) {
	entries, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, &persistence.StoreError{Op: "list", Subject: "runs", Err: err}
	}

	var records []*models.RunRecord

	for _, entry := range entries {
		record, err := r.RunByID(ctx, strings.TrimSuffix(entry, ".json"))
		if err != nil {
			return nil, err
		}

		if record.FlowID == flowID {
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}
