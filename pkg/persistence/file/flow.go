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

const fileMode = 0o644

// FlowRepository stores one <id>.json per flow under <root>/flows.
type FlowRepository struct {
	root string
}

func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

func (r *FlowRepository) dir() string {
	return filepath.Join(r.root, "flows")
}

func (r *FlowRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

func (r *FlowRepository) Flows(ctx context.Context) ([]*models.Flow, error) {
	entries, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, &persistence.StoreError{Op: "list", Subject: "flows", Err: err}
	}

	sort.Strings(entries)

	flows := make([]*models.Flow, 0, len(entries))

	for _, entry := range entries {
		flow, err := r.FlowByID(ctx, strings.TrimSuffix(entry, ".json"))
		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
	}

	return flows, nil
}

func (r *FlowRepository) FlowByID(_ context.Context, id string) (*models.Flow, error) {
	data, err := os.ReadFile(r.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.ErrFlowNotFound
	}

	if err != nil {
		return nil, &persistence.StoreError{Op: "read", Subject: "flow " + id, Err: err}
	}

	flow := &models.Flow{}
	if err := json.Unmarshal(data, flow); err != nil {
		return nil, &persistence.StoreError{Op: "decode", Subject: "flow " + id, Err: err}
	}

	return flow, nil
}

func (r *FlowRepository) SaveFlow(_ context.Context, flow *models.Flow) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return &persistence.StoreError{Op: "mkdir", Subject: "flows", Err: err}
	}

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return &persistence.StoreError{Op: "encode", Subject: "flow " + flow.ID, Err: err}
	}

	if err := os.WriteFile(r.path(flow.ID), data, fileMode); err != nil {
		return &persistence.StoreError{Op: "write", Subject: "flow " + flow.ID, Err: err}
	}

	return nil
}

func (r *FlowRepository) DeleteFlow(_ context.Context, id string) error {
	err := os.Remove(r.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return persistence.ErrFlowNotFound
	}

	if err != nil {
		return &persistence.StoreError{Op: "delete", Subject: "flow " + id, Err: err}
	}

	return nil
}
