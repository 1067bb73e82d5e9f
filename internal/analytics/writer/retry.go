package writer

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RetryPolicy bounds how often a failed streaming insert is repeated. Zero
// fields take the package defaults.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 250 * time.Millisecond
	}
	if p.MaximumBackoff < p.InitialBackoff {
		p.MaximumBackoff = max(2*time.Second, p.InitialBackoff)
	}
	return p
}

// do runs op until it succeeds, fails permanently or runs out of attempts.
// It returns the last error and how many attempts were made.
func (p RetryPolicy) do(ctx context.Context, op func() error) (int, error) {
	wait := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		err := op()
		if err == nil || attempt >= p.MaxAttempts || !transient(err) {
			return attempt, err
		}
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(wait):
		}
		wait = min(2*wait, p.MaximumBackoff)
	}
}

var (
	transientHTTP = []int{
		http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}
	transientGRPC = []codes.Code{
		codes.DeadlineExceeded,
		codes.ResourceExhausted,
		codes.Aborted,
		codes.Internal,
		codes.Unavailable,
	}
)

// transient reports whether retrying err can succeed. Aggregate insert
// errors qualify only when every part does.
func transient(err error) bool {
	if err == nil {
		return false
	}
	if parts, ok := splitInsertError(err); ok {
		return len(parts) > 0 && !slices.ContainsFunc(parts, func(e error) bool { return !transient(e) })
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return slices.Contains(transientHTTP, apiErr.Code)
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return slices.Contains(transientGRPC, st.Code())
	}
	return false
}

// splitInsertError unpacks the aggregate errors Inserter.Put returns, by
// value or by pointer.
func splitInsertError(err error) ([]error, bool) {
	var (
		multi     cbigquery.MultiError
		multiRef  *cbigquery.MultiError
		perRow    cbigquery.PutMultiError
		perRowRef *cbigquery.PutMultiError
		rowErr    *cbigquery.RowInsertionError
	)
	switch {
	case errors.As(err, &multi):
		return multi, true
	case errors.As(err, &multiRef) && multiRef != nil:
		return *multiRef, true
	case errors.As(err, &perRow):
		return rowCauses(perRow), true
	case errors.As(err, &perRowRef) && perRowRef != nil:
		return rowCauses(*perRowRef), true
	case errors.As(err, &rowErr) && rowErr != nil:
		return rowErr.Errors, true
	}
	return nil, false
}

func rowCauses(rows cbigquery.PutMultiError) []error {
	causes := make([]error, 0, len(rows))
	for _, row := range rows {
		causes = append(causes, row.Errors)
	}
	return causes
}
