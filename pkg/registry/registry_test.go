package registry_test

import (
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/registry"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

func newRegistry() *registry.Registry {
	r := registry.NewRegistry(slog.Default())
	r.RegisterDefaults()

	return r
}

func TestCreateKnownHandler(t *testing.T) {
	t.Parallel()

	r := newRegistry()

	handler, err := r.Create(models.ActionClick)
	require.NoError(t, err)
	assert.NotNil(t, handler)
}

func TestCreateUnknownHandler(t *testing.T) {
	t.Parallel()

	r := newRegistry()

	_, err := r.Create(models.ActionType("teleport"))
	require.ErrorIs(t, err, registry.ErrHandlerNotRegistered)
}

func TestSupports(t *testing.T) {
	t.Parallel()

	r := newRegistry()

	assert.True(t, r.Supports(models.ActionNavigate))
	assert.True(t, r.Supports(models.ActionForeach))
	assert.False(t, r.Supports(models.ActionType("teleport")))
}

func TestActionTypesSorted(t *testing.T) {
	t.Parallel()

	types := newRegistry().ActionTypes()
	require.NotEmpty(t, types)
	assert.True(t, sort.StringsAreSorted(types))
	assert.Contains(t, types, "click")
	assert.Contains(t, types, "executeFlow")
}

func TestValidateParamsSchema(t *testing.T) {
	t.Parallel()

	r := newRegistry()

	valid := testutil.CreateTestAction(
		testutil.WithType(models.ActionNavigate),
		testutil.WithParams(map[string]any{"url": "https://example.test/"}),
	)
	assert.NoError(t, r.ValidateParams(valid))

	// Schema requires url; handler validation also rejects its absence.
	missing := testutil.CreateTestAction(
		testutil.WithType(models.ActionNavigate),
		testutil.WithParams(map[string]any{}),
	)
	err := r.ValidateParams(missing)
	require.Error(t, err)
	assert.Equal(t, models.CodeValidationError, models.CodeOf(err))

	wrongType := testutil.CreateTestAction(
		testutil.WithType(models.ActionNavigate),
		testutil.WithParams(map[string]any{"url": 7}),
	)
	assert.Error(t, r.ValidateParams(wrongType))
}

func TestValidateParamsTemplatePassthrough(t *testing.T) {
	t.Parallel()

	r := newRegistry()

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionNavigate),
		testutil.WithParams(map[string]any{"url": "{{ .vars.base }}/cart"}),
	)
	assert.NoError(t, r.ValidateParams(action))
}

func TestRegisterReplaces(t *testing.T) {
	t.Parallel()

	r := newRegistry()
	before := len(r.ActionTypes())

	r.RegisterDefaults()
	assert.Len(t, r.ActionTypes(), before)
}
