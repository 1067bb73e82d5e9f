package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	overdue := &stubJob{name: "delivery_overdue"}
	retention := &stubJob{name: "outbox_retention"}

	require.NoError(t, registry.Register(overdue, time.Hour))
	require.NoError(t, registry.Register(retention, 24*time.Hour))
	require.Error(t, registry.Register(&stubJob{name: "delivery_overdue"}, time.Hour))
	require.Error(t, registry.Register(nil, time.Hour))
	require.Error(t, registry.Register(&stubJob{name: " "}, time.Hour))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, overdue, jobs[0])
	assert.Same(t, retention, jobs[1])

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryDueHonoursCadence(t *testing.T) {
	registry := NewRegistry()
	overdue := &stubJob{name: "delivery_overdue"}
	retention := &stubJob{name: "outbox_retention"}
	require.NoError(t, registry.Register(overdue, time.Hour))
	require.NoError(t, registry.Register(retention, 24*time.Hour))

	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	assert.Len(t, registry.Due(start), 2, "never-run jobs are due")

	registry.MarkRun("delivery_overdue", start)
	registry.MarkRun("outbox_retention", start)
	assert.Empty(t, registry.Due(start.Add(30*time.Minute)))

	due := registry.Due(start.Add(time.Hour))
	require.Len(t, due, 1)
	assert.Equal(t, "delivery_overdue", due[0].Name())

	assert.Len(t, registry.Due(start.Add(24*time.Hour)), 2)
}

func TestNewRegistryJobsAlwaysDue(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "a"}, nil, &stubJob{name: "a"})
	require.Len(t, registry.Jobs(), 1)
	now := time.Now()
	registry.MarkRun("a", now)
	assert.Len(t, registry.Due(now), 1)
}
