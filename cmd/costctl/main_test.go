package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/yield"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	store  *history.FileStore
	opened int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := history.NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return &harness{store: store}
}

func (h *harness) open(context.Context) (*resources, error) {
	h.opened++
	return &resources{
		store:   h.store,
		migrate: func() (int64, error) { return 2, nil },
		logger:  zap.NewNop(),
	}, nil
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(h.open, func() time.Time { return fixedNow })
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeJob(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const jobYAML = `
common:
  tool_ref_name: CLI Tool
components:
  - name: Stator
  - name: Rotor
    stack_height: 20
`

func TestEstimatePrintsComponentsWithoutOpeningHistory(t *testing.T) {
	h := newHarness(t)
	job := writeJob(t, "job.yaml", jobYAML)

	out, err := h.run(t, "estimate", "-f", job)
	require.NoError(t, err)

	assert.Contains(t, out, "Tool: CLI Tool")
	assert.Contains(t, out, "Stator")
	assert.Contains(t, out, "Rotor")
	assert.Contains(t, out, "TOTAL LANDED")
	assert.Contains(t, out, "Total cost per Kg: ")
	assert.Equal(t, 0, h.opened)
}

func TestEstimateWritesReportsAndSaves(t *testing.T) {
	h := newHarness(t)
	job := writeJob(t, "job.yaml", jobYAML)
	dir := t.TempDir()
	detailed := filepath.Join(dir, "detailed.pdf")
	summary := filepath.Join(dir, "summary.pdf")
	xlsx := filepath.Join(dir, "estimate.xlsx")

	out, err := h.run(t, "estimate", "-f", job, "--detailed", detailed, "--summary", summary, "--xlsx", xlsx, "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "saved ")

	for _, path := range []string{detailed, summary} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), path)
	}
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	entries := h.store.Load(context.Background(), history.CollectionCost)
	require.Len(t, entries, 1)
	assert.Equal(t, "CLI Tool", entries[0].Label)

	est, err := history.Decode[costing.Estimate](entries[0])
	require.NoError(t, err)
	require.Len(t, est.Components, 2)
	assert.Equal(t, 20.0, est.Components[1].Input.StackHeightMm)
}

func TestEstimateRequiresFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "estimate")
	require.Error(t, err)
}

func TestEstimateMissingFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "estimate", "-f", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read job file")
}

func TestYieldFlagsNegativeValues(t *testing.T) {
	h := newHarness(t)
	strip := writeJob(t, "strip.yaml", `
label: Overcut
pitch_mm: 10
sheet_width_mm: 10
components:
  - name: Ring
    outer_area_mm2: 20
    slots:
      - area_mm2: 30
`)

	out, err := h.run(t, "yield", "-f", strip, "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "-10.00")
	assert.Contains(t, out, "(negative)")

	entries := h.store.Load(context.Background(), history.CollectionYield)
	require.Len(t, entries, 1)
	assert.Equal(t, "Overcut", entries[0].Label)

	calc, err := history.Decode[yield.Calculation](entries[0])
	require.NoError(t, err)
	assert.InDelta(t, -10.0, calc.Result.GrossYieldPct, 1e-9)
}

func TestHistoryListAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.store.Save(ctx, history.CollectionYield, "first", yield.Calculate(yield.DefaultInputs()))
	require.NoError(t, err)
	second, err := h.store.Save(ctx, history.CollectionYield, "second", yield.Calculate(yield.DefaultInputs()))
	require.NoError(t, err)

	out, err := h.run(t, "history", "list", "yield")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, second.ID), strings.Index(out, first.ID), "newest first")

	_, err = h.run(t, "history", "delete", "yield", first.ID)
	require.NoError(t, err)

	out, err = h.run(t, "history", "list", "yield")
	require.NoError(t, err)
	assert.NotContains(t, out, first.ID)
	assert.Contains(t, out, second.ID)

	out, err = h.run(t, "history", "list", "cost")
	require.NoError(t, err)
	assert.Contains(t, out, "no saved entries")
}

func TestHistoryUnknownCollection(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "history", "list", "batches")
	require.ErrorIs(t, err, history.ErrUnknownCollection)
	assert.Equal(t, 0, h.opened)
}

func TestMigrateReportsVersion(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version 2")
}
