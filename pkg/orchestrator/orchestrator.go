// Package orchestrator drives flow replay end to end: preparation, graph
// traversal under policy, control-flow recursion, pause/resume, and
// cleanup.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/controlflow"
	"github.com/retrace-dev/retrace/pkg/eventbus"
	"github.com/retrace-dev/retrace/pkg/hooks"
	"github.com/retrace-dev/retrace/pkg/jsengine"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/otelhelper"
	"github.com/retrace-dev/retrace/pkg/persistence"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/resolve"
	"github.com/retrace-dev/retrace/pkg/runstate"
	"github.com/retrace-dev/retrace/pkg/variables"
)

// DefaultMaxIterations is the hard guard on total steps executed per run,
// protecting against malformed graphs the validator cannot catch (label
// cycles through onError edges, runaway subflow recursion).
const DefaultMaxIterations = 1000

// Graph-binding failures reported before any step executes.
var (
	ErrNoStartNode   = errors.New("flow has no start node")
	ErrDomainBinding = errors.New("active page does not match the flow's domain binding")
	ErrNotPaused     = errors.New("run is not paused")
)

// Prompter collects values for required variables that are still missing
// after defaults and call-time arguments were applied.
type Prompter interface {
	Prompt(ctx context.Context, decls []models.VariableDecl) (map[string]any, error)
}

// Config wires an orchestrator's collaborators. Executor, Driver, Resolver
// and JS are required; everything else degrades gracefully when nil.
type Config struct {
	Executor protocol.StepExecutor
	Driver   browser.Driver
	Resolver *resolve.Engine
	JS       *jsengine.Engine

	Hooks     *hooks.Manager
	Publisher eventbus.EventPublisher
	Runs      persistence.RunRepository
	States    runstate.Registry
	Prompter  Prompter

	Logger *slog.Logger
	Tracer trace.Tracer

	MaxIterations  int
	CaptureNetwork bool
}

// RunOptions parameterize one replay.
type RunOptions struct {
	// RunID is assigned when empty.
	RunID string
	// Args are call-time variable values, applied over flow defaults.
	Args map[string]any
	// StartURL overrides the flow's domain binding: the run navigates there
	// first instead of checking the current page.
	StartURL string
	// Deadline is the global wall-clock budget; zero means unbounded.
	Deadline time.Time
	// TabID pins the run to an existing tab.
	TabID string
	// ResumeNodeID re-enters a paused run at the recorded node.
	ResumeNodeID string
}

// Orchestrator executes flows. It is stateless across runs; all per-run
// state lives in the run struct.
type Orchestrator struct {
	cfg     Config
	control *controlflow.Runner
	logger  *slog.Logger
}

func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}

	if cfg.Hooks == nil {
		cfg.Hooks = hooks.NewManager(cfg.Logger)
	}

	logger := cfg.Logger.With("module", "orchestrator")

	return &Orchestrator{
		cfg:     cfg,
		control: controlflow.NewRunner(cfg.Logger),
		logger:  logger,
	}
}

// run is the per-run mutable state shared by the graph walker and the
// cleanup phase.
type run struct {
	flow      *models.Flow
	ec        *protocol.ExecContext
	opts      RunOptions
	startedAt time.Time

	mu         sync.Mutex
	logs       []models.RunLogEntry
	total      int
	succeeded  int
	failed     int
	iterations int

	failureShot  string
	failure      *models.StepError
	failedStepID string
	paused       bool
	pausedNodeID string
}

func (r *run) appendLog(entry models.RunLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, entry)
}

func (r *run) count(status models.StepStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++

	switch status {
	case models.StepStatusSuccess, models.StepStatusSkipped:
		r.succeeded++
	case models.StepStatusFailed:
		r.failed++
	case models.StepStatusPaused:
	}
}

// nextIteration consumes one slot of the iteration budget and reports
// whether any budget remains.
func (r *run) nextIteration(limit int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.iterations++

	return r.iterations <= limit
}

func (r *run) summary() models.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return models.RunSummary{
		Total:   r.total,
		Success: r.succeeded,
		Failed:  r.failed,
		TookMs:  time.Since(r.startedAt).Milliseconds(),
	}
}

// Run replays a flow and returns its result. Graph-integrity and binding
// problems are returned as errors before any step executes; step failures
// are reported inside the RunResult.
func (o *Orchestrator) Run(ctx context.Context, flow *models.Flow, opts RunOptions) (*models.RunResult, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	if o.cfg.Tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, o.cfg.Tracer, "flow.run",
			attribute.String(otelhelper.FlowIDKey, flow.ID),
			attribute.String(otelhelper.RunIDKey, opts.RunID),
		)
		defer span.End()
	}

	if !opts.Deadline.IsZero() {
		var cancel context.CancelFunc

		ctx, cancel = context.WithDeadline(ctx, opts.Deadline)
		defer cancel()
	}

	r, err := o.prepare(ctx, flow, opts)
	if err != nil {
		return nil, err
	}

	if opts.ResumeNodeID != "" {
		o.publish(ctx, o.runResumed(r, opts.ResumeNodeID))
	} else {
		o.publish(ctx, o.runStarted(r, opts.StartURL))
	}

	o.putState(ctx, r, models.RunStatusRunning, "")

	outcome := o.runGraph(ctx, r, r.ec, flow.Nodes, flow.Edges, o.startNode(r))

	return o.finish(ctx, r, outcome)
}

// Resume re-enters a paused run at its recorded node.
func (o *Orchestrator) Resume(ctx context.Context, flow *models.Flow, opts RunOptions) (*models.RunResult, error) {
	if opts.ResumeNodeID == "" {
		return nil, ErrNotPaused
	}

	return o.Run(ctx, flow, opts)
}

// prepare runs the cannot-start checks: graph validation, tab acquisition,
// domain binding, and variable seeding. Everything here fails the run
// before its first step.
func (o *Orchestrator) prepare(ctx context.Context, flow *models.Flow, opts RunOptions) (*run, error) {
	if err := flow.Validate(); err != nil {
		return nil, fmt.Errorf("flow %s: %w", flow.ID, err)
	}

	tabID, err := o.ensureTab(ctx, opts)
	if err != nil {
		return nil, err
	}

	if opts.StartURL != "" {
		if err := o.cfg.Driver.Navigate(ctx, tabID, opts.StartURL); err != nil {
			return nil, fmt.Errorf("navigating to start url: %w", err)
		}
	} else if err := o.checkBinding(ctx, flow, tabID); err != nil {
		return nil, err
	}

	vars, err := o.seedVariables(ctx, flow, opts)
	if err != nil {
		return nil, err
	}

	r := &run{
		flow:      flow,
		opts:      opts,
		startedAt: time.Now(),
	}

	r.ec = &protocol.ExecContext{
		RunID:    opts.RunID,
		FlowID:   flow.ID,
		Vars:     vars,
		Driver:   o.cfg.Driver,
		Resolver: o.cfg.Resolver,
		JS:       o.cfg.JS,
		Logger:   o.logger.With("run", opts.RunID),
		TabID:    tabID,
		Deadline: opts.Deadline,
		Flags: protocol.ExecFlags{
			ScreenshotOnFailure: true,
		},
		LogSink: r.appendLog,
	}

	if _, start := o.resolveStart(flow, opts); start == "" {
		return nil, fmt.Errorf("flow %s: %w", flow.ID, ErrNoStartNode)
	}

	if o.cfg.CaptureNetwork {
		if err := o.cfg.Driver.StartNetworkCapture(ctx, tabID); err != nil {
			o.logger.WarnContext(ctx, "network capture unavailable", "error", err)
		}
	}

	return r, nil
}

func (o *Orchestrator) ensureTab(ctx context.Context, opts RunOptions) (string, error) {
	if opts.TabID != "" {
		if _, err := o.cfg.Driver.Tab(ctx, opts.TabID); err != nil {
			return "", fmt.Errorf("pinned tab: %w", err)
		}

		return opts.TabID, nil
	}

	tabs, err := o.cfg.Driver.Tabs(ctx)
	if err != nil {
		return "", fmt.Errorf("listing tabs: %w", err)
	}

	if len(tabs) > 0 {
		return tabs[0].ID, nil
	}

	info, err := o.cfg.Driver.OpenTab(ctx, "")
	if err != nil {
		return "", fmt.Errorf("opening tab: %w", err)
	}

	return info.ID, nil
}

// checkBinding enforces the flow's recorded domain/path binding against the
// active page. An explicit start URL bypasses it in prepare.
func (o *Orchestrator) checkBinding(ctx context.Context, flow *models.Flow, tabID string) error {
	binding := flow.Metadata
	if binding.Domain == "" {
		return nil
	}

	info, err := o.cfg.Driver.Tab(ctx, tabID)
	if err != nil {
		return fmt.Errorf("reading tab: %w", err)
	}

	parsed, err := url.Parse(info.URL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("%w: active url %q", ErrDomainBinding, info.URL)
	}

	host := parsed.Hostname()
	if host != binding.Domain && !strings.HasSuffix(host, "."+binding.Domain) {
		return fmt.Errorf("%w: %s is not on %s", ErrDomainBinding, host, binding.Domain)
	}

	if binding.PathPrefix != "" && !strings.HasPrefix(parsed.Path, binding.PathPrefix) {
		return fmt.Errorf("%w: path %s lacks prefix %s", ErrDomainBinding, parsed.Path, binding.PathPrefix)
	}

	return nil
}

func (o *Orchestrator) seedVariables(ctx context.Context, flow *models.Flow, opts RunOptions) (*variables.Store, error) {
	vars := variables.NewStore()

	missing, err := vars.Seed(flow.Variables, opts.Args)
	if err == nil {
		return vars, nil
	}

	if o.cfg.Prompter == nil {
		return nil, err
	}

	prompted, promptErr := o.cfg.Prompter.Prompt(ctx, missing)
	if promptErr != nil {
		return nil, fmt.Errorf("prompting for variables: %w", promptErr)
	}

	if _, err := vars.Seed(flow.Variables, merged(opts.Args, prompted)); err != nil {
		return nil, err
	}

	return vars, nil
}

// resolveStart picks the entry node: an explicit resume node, the first
// non-trigger root, or the node a trigger root's default edge reaches.
func (o *Orchestrator) resolveStart(flow *models.Flow, opts RunOptions) (*models.Action, string) {
	if opts.ResumeNodeID != "" {
		if node, ok := models.FindNode(flow.Nodes, opts.ResumeNodeID); ok {
			return node, node.ID
		}

		return nil, ""
	}

	roots := models.Roots(flow.Nodes, flow.Edges)

	for _, id := range roots {
		node, _ := models.FindNode(flow.Nodes, id)
		if node != nil && !node.Type.IsTrigger() {
			return node, node.ID
		}
	}

	for _, id := range roots {
		if next, ok := models.NextByLabel(flow.Edges, id, models.EdgeLabelDefault); ok {
			if node, found := models.FindNode(flow.Nodes, next); found {
				return node, node.ID
			}
		}
	}

	return nil, ""
}

func (o *Orchestrator) startNode(r *run) string {
	_, start := o.resolveStart(r.flow, r.opts)

	return start
}

func merged(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}

	for k, v := range override {
		out[k] = v
	}

	return out
}
