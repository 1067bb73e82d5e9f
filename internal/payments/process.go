package payments

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

const failureReasonLimit = 500

// Process applies a charge result to the payment row. The row is mutated in
// every case so the caller can persist it; the returned error is what the
// caller surfaces afterwards.
func Process(payment *models.PurchasePayment, outcome Outcome, chargeErr error, now time.Time) error {
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "payment required")
	}

	if chargeErr != nil {
		payment.Status = enums.PaymentStatusFailed
		payment.FailureReason = clip(fmt.Sprintf("payment gateway error: %v", chargeErr))
		return ChargeError(chargeErr)
	}

	if outcome.Ref != "" {
		ref := outcome.Ref
		payment.PayPackRef = &ref
		payment.ReferenceNumber = ref
	}
	if outcome.RawStatus != "" {
		raw := outcome.RawStatus
		payment.PayPackStatus = &raw
	}

	switch outcome.Status {
	case OutcomeSuccess:
		completed := now.UTC()
		payment.Status = enums.PaymentStatusCompleted
		payment.CompletedDate = &completed
		return nil
	case OutcomePending:
		payment.Status = enums.PaymentStatusPending
		return nil
	default:
		payment.Status = enums.PaymentStatusFailed
		payment.FailureReason = clip(fmt.Sprintf("unexpected gateway status: %s", outcome.RawStatus))
		return pkgerrors.New(pkgerrors.CodeGateway, "payment gateway rejected the charge")
	}
}

// ChargeError classifies an error returned by a Charger. Input rejected by
// the gateway client stays a validation error; a gateway refusal is a bad
// gateway; anything else means the gateway could not be reached.
func ChargeError(chargeErr error) error {
	switch {
	case chargeErr == nil:
		return nil
	case pkgerrors.IsCode(chargeErr, pkgerrors.CodeValidation):
		return chargeErr
	case pkgerrors.IsCode(chargeErr, pkgerrors.CodeGateway):
		return pkgerrors.Wrap(pkgerrors.CodeGateway, chargeErr, "payment gateway rejected the charge")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, chargeErr, "payment gateway unavailable")
	}
}

// CompleteOffline marks a payment that does not go through the gateway.
func CompleteOffline(payment *models.PurchasePayment, now time.Time) {
	completed := now.UTC()
	payment.Status = enums.PaymentStatusCompleted
	payment.CompletedDate = &completed
}

func clip(reason string) string {
	if len(reason) <= failureReasonLimit {
		return reason
	}
	cut := failureReasonLimit
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
