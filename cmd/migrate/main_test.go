package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

type fakeMigrator struct {
	version  uint
	upSteps  []int
	down     []int
	upErr    error
	statusEr error
}

func (f *fakeMigrator) MigrateUp(_ context.Context, steps int) error {
	if f.upErr != nil {
		return f.upErr
	}
	f.upSteps = append(f.upSteps, steps)
	f.version = 3
	return nil
}

func (f *fakeMigrator) MigrateDown(_ context.Context, steps int) error {
	f.down = append(f.down, steps)
	f.version--
	return nil
}

func (f *fakeMigrator) MigrationStatus(context.Context) (postgres.MigrationStatus, error) {
	return postgres.MigrationStatus{Version: f.version}, f.statusEr
}

func env(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-direction", " DOWN ", "-steps", "2"},
		env(map[string]string{"STOREFRONT_POSTGRES_DSN": "postgres://localhost/shop"}))
	require.NoError(t, err)
	assert.Equal(t, options{direction: "down", steps: 2, dsn: "postgres://localhost/shop"}, opts)

	opts, err = parseOptions([]string{"-dsn=postgres://flag/shop"}, env(map[string]string{"STOREFRONT_POSTGRES_DSN": "postgres://env/shop"}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag/shop", opts.dsn)
	assert.Equal(t, "up", opts.direction)
}

func TestParseOptions_Errors(t *testing.T) {
	noEnv := env(nil)
	_, err := parseOptions(nil, noEnv)
	require.ErrorContains(t, err, "STOREFRONT_POSTGRES_DSN")

	_, err = parseOptions([]string{"-dsn=x", "-direction=sideways"}, noEnv)
	require.ErrorContains(t, err, "unsupported direction")

	_, err = parseOptions([]string{"-dsn=x", "-steps=-1"}, noEnv)
	require.Error(t, err)
}

func TestRun_Directions(t *testing.T) {
	m := &fakeMigrator{}
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), m, options{direction: "up"}, &out))
	assert.Equal(t, []int{0}, m.upSteps)
	assert.Equal(t, "up ok: version=3 dirty=false\n", out.String())

	out.Reset()
	require.NoError(t, run(context.Background(), m, options{direction: "down", steps: 1}, &out))
	assert.Equal(t, []int{1}, m.down)
	assert.Contains(t, out.String(), "version=2")

	out.Reset()
	require.NoError(t, run(context.Background(), m, options{direction: "status"}, &out))
	assert.Equal(t, "status ok: version=2 dirty=false\n", out.String())
}

func TestRun_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	err := run(context.Background(), &fakeMigrator{upErr: boom}, options{direction: "up"}, &bytes.Buffer{})
	require.ErrorIs(t, err, boom)

	err = run(context.Background(), &fakeMigrator{statusEr: boom}, options{direction: "status"}, &bytes.Buffer{})
	require.ErrorIs(t, err, boom)
}
