package writer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/types"
	pkgbigquery "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bigquery"
)

const table = "marketplace_events"

// scriptedInserter answers each InsertRows call with the next scripted
// error, then succeeds.
type scriptedInserter struct {
	mu     sync.Mutex
	script []error
	tables []string
	sizes  []int
	rows   []any
}

func (s *scriptedInserter) InsertRows(_ context.Context, table string, rows []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = append(s.tables, table)
	s.sizes = append(s.sizes, len(rows))
	s.rows = append(s.rows, rows...)
	if len(s.script) == 0 {
		return nil
	}
	err := s.script[0]
	s.script = s.script[1:]
	return err
}

func (s *scriptedInserter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sizes)
}

func newScripted(t *testing.T, batch int, script ...error) (*BigQueryWriter, *scriptedInserter) {
	t.Helper()
	w, err := New(&pkgbigquery.Client{}, Config{
		MarketplaceTable: table,
		BatchSize:        batch,
		RetryPolicy:      RetryPolicy{InitialBackoff: time.Millisecond, MaximumBackoff: 2 * time.Millisecond},
	})
	require.NoError(t, err)
	ins := &scriptedInserter{script: script}
	w.client = ins
	return w, ins
}

func row(id string) types.MarketplaceEventRow {
	return types.MarketplaceEventRow{EventID: id, EventType: "listing_posted"}
}

func TestNew(t *testing.T) {
	_, err := New(nil, Config{MarketplaceTable: table})
	assert.Error(t, err)
	_, err = New(&pkgbigquery.Client{}, Config{MarketplaceTable: "  "})
	assert.Error(t, err)

	w, err := New(&pkgbigquery.Client{}, Config{MarketplaceTable: " " + table + " ", BatchSize: -4})
	require.NoError(t, err)
	assert.Equal(t, table, w.table)
	assert.Equal(t, 1, w.batch)
	assert.Equal(t, 3, w.retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, w.retry.InitialBackoff)
	assert.Equal(t, 2*time.Second, w.retry.MaximumBackoff)
}

func TestEncodeJSON(t *testing.T) {
	for name, in := range map[string]any{
		"nil":       nil,
		"empty raw": json.RawMessage(nil),
		"no bytes":  []byte{},
	} {
		got, err := EncodeJSON(in)
		require.NoError(t, err, name)
		assert.False(t, got.Valid, name)
	}

	raw := json.RawMessage(`{"amount":"1500"}`)
	got, err := EncodeJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, cbigquery.NullJSON{JSONVal: string(raw), Valid: true}, got)

	got, err = EncodeJSON(map[string]string{"sell_id": "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sell_id":"abc"}`, got.JSONVal)

	_, err = EncodeJSON(make(chan int))
	assert.Error(t, err)
}

func TestTransientFailureIsRetried(t *testing.T) {
	w, ins := newScripted(t, 1, &googleapi.Error{Code: http.StatusServiceUnavailable})

	require.NoError(t, w.InsertMarketplace(context.Background(), row("evt-1")))
	assert.Equal(t, []string{table, table}, ins.tables)
	assert.Zero(t, w.Pending())
}

func TestPermanentFailureKeepsRowQueued(t *testing.T) {
	w, ins := newScripted(t, 1, &googleapi.Error{Code: http.StatusBadRequest})

	err := w.InsertMarketplace(context.Background(), row("evt-1"))
	assert.ErrorContains(t, err, "1 attempts")
	assert.Equal(t, 1, ins.calls())
	assert.Equal(t, 1, w.Pending())

	require.NoError(t, w.Flush(context.Background()))
	assert.Zero(t, w.Pending())
}

func TestRetriesStopAtMaxAttempts(t *testing.T) {
	down := status.Error(codes.Unavailable, "backend down")
	w, ins := newScripted(t, 1, down, down, down, down)

	err := w.InsertMarketplace(context.Background(), row("evt-1"))
	assert.ErrorIs(t, err, down)
	assert.Equal(t, w.retry.MaxAttempts, ins.calls())
}

func TestRetryStopsWhenContextEnds(t *testing.T) {
	w, ins := newScripted(t, 1, status.Error(codes.Unavailable, "down"))
	w.retry.InitialBackoff = time.Hour
	w.retry.MaximumBackoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.InsertMarketplace(ctx, row("evt-1")), context.DeadlineExceeded)
	assert.Equal(t, 1, ins.calls())
}

func TestBatching(t *testing.T) {
	w, ins := newScripted(t, 2)
	ctx := context.Background()

	require.NoError(t, w.InsertMarketplace(ctx, row("evt-1")))
	assert.Zero(t, ins.calls())
	assert.Equal(t, 1, w.Pending())

	require.NoError(t, w.InsertMarketplace(ctx, row("evt-2")))
	assert.Equal(t, []int{2}, ins.sizes)
	assert.Zero(t, w.Pending())

	require.NoError(t, w.Flush(ctx))
	assert.Equal(t, 1, ins.calls(), "flushing an empty queue writes nothing")
}

func TestRowsCarryEventIDAsInsertID(t *testing.T) {
	w, ins := newScripted(t, 1)
	require.NoError(t, w.InsertMarketplace(context.Background(), row("evt-42")))

	require.Len(t, ins.rows, 1)
	saver, ok := ins.rows[0].(*cbigquery.StructSaver)
	require.True(t, ok, "row type %T", ins.rows[0])
	assert.Equal(t, "evt-42", saver.InsertID)
	assert.NotEmpty(t, saver.Schema)
}

func TestTransient(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":           {nil, false},
		"plain":         {errors.New("boom"), false},
		"rate limited":  {&googleapi.Error{Code: http.StatusTooManyRequests}, true},
		"not found":     {&googleapi.Error{Code: http.StatusNotFound}, false},
		"grpc deadline": {status.Error(codes.DeadlineExceeded, "slow"), true},
		"grpc invalid":  {status.Error(codes.InvalidArgument, "bad row"), false},
		"all transient": {&cbigquery.MultiError{&googleapi.Error{Code: http.StatusBadGateway}}, true},
		"mixed": {cbigquery.MultiError{
			&googleapi.Error{Code: http.StatusBadGateway},
			&googleapi.Error{Code: http.StatusBadRequest},
		}, false},
		"empty aggregate": {cbigquery.MultiError{}, false},
		"row failures": {cbigquery.PutMultiError{
			{InsertID: "evt-1", Errors: cbigquery.MultiError{status.Error(codes.Unavailable, "down")}},
		}, true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, transient(tc.err))
		})
	}
}

func TestRunFlusherWritesPartialBatch(t *testing.T) {
	w, ins := newScripted(t, 50)
	require.NoError(t, w.InsertMarketplace(context.Background(), row("evt-1")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.RunFlusher(ctx, 5*time.Millisecond, nil)
	}()

	assert.Eventually(t, func() bool { return w.Pending() == 0 }, time.Second, 2*time.Millisecond)
	cancel()
	<-done
	assert.GreaterOrEqual(t, ins.calls(), 1)
}

func TestRunFlusherReturnsForUnbatchedWriter(t *testing.T) {
	w, _ := newScripted(t, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.RunFlusher(context.Background(), time.Millisecond, nil)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flusher should not run when rows are written on arrival")
	}
}
