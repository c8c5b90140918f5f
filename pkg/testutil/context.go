package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/jsengine"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/resolve"
	"github.com/retrace-dev/retrace/pkg/variables"
)

// NewExecContext builds an execution context on the in-memory driver with a
// fresh tab opened at startURL. The returned sink collects every run log
// entry the context emits.
func NewExecContext(t *testing.T, drv *memdriver.Driver, startURL string) (*protocol.ExecContext, *LogSink) {
	t.Helper()

	tab, err := drv.OpenTab(context.Background(), startURL)
	require.NoError(t, err)

	logger := slog.Default()
	sink := &LogSink{}

	ec := &protocol.ExecContext{
		RunID:    "run-test",
		FlowID:   "flow-test",
		Vars:     variables.NewStore(),
		Driver:   drv,
		Resolver: resolve.NewEngine(logger, 0),
		JS:       jsengine.New(logger),
		Logger:   logger,
		TabID:    tab.ID,
		LogSink:  func(entry models.RunLogEntry) { sink.Append(entry) },
	}

	return ec, sink
}

// LogSink collects run log entries for assertions.
type LogSink struct {
	Entries []models.RunLogEntry
}

func (s *LogSink) Append(entry models.RunLogEntry) {
	s.Entries = append(s.Entries, entry)
}

// ByStatus returns the collected entries carrying the given status.
func (s *LogSink) ByStatus(status string) []models.RunLogEntry {
	var out []models.RunLogEntry

	for _, entry := range s.Entries {
		if entry.Status == status {
			out = append(out, entry)
		}
	}

	return out
}
