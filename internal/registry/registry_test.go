package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noFailures(context.Context) ([]models.CheckerFailure, error) { return nil, nil }

func oneFailure(text string) Func {
	return func(context.Context) ([]models.CheckerFailure, error) {
		return []models.CheckerFailure{models.NewFailure(text)}, nil
	}
}

func TestRegister_Defaults(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("disk_space", noFailures))

	reg, ok := r.Get("disk_space")
	require.True(t, ok)
	assert.Equal(t, 1, reg.Tries)
	assert.Equal(t, models.SeverityLow, reg.Severity)
	assert.Equal(t, models.CadenceHourly, reg.Cadence)
	assert.Empty(t, reg.Section)
}

func TestRegister_Options(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("queue_backlog", oneFailure("backlog > 1000"),
		WithSection("queues"),
		WithDescription("  backlog stays small \n"),
		WithOwner(" ops@example.com"),
		WithTries(3),
		WithTries(0),
		WithSeverity(models.SeverityHigh),
		WithCadence(models.CadenceDaily),
	))

	reg, ok := r.Get("queue_backlog")
	require.True(t, ok)
	assert.Equal(t, "queues", reg.Section)
	assert.Equal(t, "backlog stays small", reg.Description)
	assert.Equal(t, "ops@example.com", reg.Owner)
	assert.Equal(t, 3, reg.Tries)
	assert.Equal(t, models.SeverityHigh, reg.Severity)
	assert.Equal(t, models.CadenceDaily, reg.Cadence)
}

func TestRegister_DuplicateKeepsFirst(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("disk_space", noFailures, WithSection("infra")))

	err := r.Register("disk_space", oneFailure("second"), WithSection("billing"))
	require.Error(t, err)

	var dup *DuplicateNameError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "disk_space", dup.Name)
	assert.Equal(t, "billing", dup.Section)
	assert.Equal(t, "infra", dup.ExistingSection)

	reg, ok := r.Get("disk_space")
	require.True(t, ok)
	assert.Equal(t, "infra", reg.Section)
	failures, err := reg.Func(context.Background())
	require.NoError(t, err)
	assert.Empty(t, failures, "the first registration must not be replaced")

	assert.Equal(t, 1, r.Len())
	require.Len(t, r.Duplicates(), 1)
	require.Error(t, r.Validate())
	assert.Contains(t, r.Validate().Error(), "disk_space")
}

func TestRegister_Invalid(t *testing.T) {
	r := New()
	require.ErrorIs(t, r.Register("  ", noFailures), ErrInvalidRegistration)
	require.ErrorIs(t, r.Register("nil_func", nil), ErrInvalidRegistration)
	assert.Zero(t, r.Len())
	assert.NoError(t, r.Validate())
}

func TestAll_RegistrationOrder(t *testing.T) {
	r := New()
	names := []string{"zeta", "alpha", "mu", "beta"}
	for _, n := range names {
		require.NoError(t, r.Register(n, noFailures))
	}

	var got []string
	for _, reg := range r.All() {
		got = append(got, reg.Name)
	}
	assert.Equal(t, names, got)
}

func TestForCadence(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a", noFailures, WithCadence(models.CadenceHourly)))
	require.NoError(t, r.Register("b", noFailures, WithCadence(models.CadenceDaily)))
	require.NoError(t, r.Register("c", noFailures, WithCadence(models.CadenceHourly)))
	require.NoError(t, r.Register("d", noFailures, WithCadence(models.CadenceHourly)))

	hourly := r.ForCadence(models.CadenceHourly, []string{"c"})
	require.Len(t, hourly, 2)
	assert.Equal(t, "a", hourly[0].Name)
	assert.Equal(t, "d", hourly[1].Name)

	assert.Empty(t, r.ForCadence(models.CadenceEveryTenMinutes, nil))
}

func TestSubset(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a", noFailures))
	require.NoError(t, r.Register("b", noFailures))
	require.NoError(t, r.Register("c", noFailures))

	sub, err := r.Subset("c", "a")
	require.NoError(t, err)
	all := sub.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "c", all[1].Name)

	_, err = r.Subset("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMustRegister_PanicsOnDuplicate(t *testing.T) {
	saved := Default
	Default = New()
	t.Cleanup(func() { Default = saved })

	MustRegister("once", noFailures)
	require.NoError(t, Register("twice", noFailures))
	assert.Panics(t, func() { MustRegister("once", noFailures) })
	assert.Equal(t, 2, Default.Len())
}
