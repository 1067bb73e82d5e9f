package enums

import "slices"

// OutboxDLQErrorReason says why an outbox row was moved to outbox_dlq
// instead of reaching Pub/Sub.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: transient publish errors until the attempt
	// budget ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: the row or the broker reply can never succeed.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUnknownEvent: no descriptor is registered for the event type.
	OutboxDLQReasonUnknownEvent OutboxDLQErrorReason = "unknown_event"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return slices.Contains([]OutboxDLQErrorReason{
		OutboxDLQReasonMaxAttempts,
		OutboxDLQReasonNonRetryable,
		OutboxDLQReasonUnknownEvent,
	}, r)
}
