package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/paypack"
)

// OutcomeStatus is the gateway verdict on a charge.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomePending OutcomeStatus = "pending"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome is what a Charger reports for one charge request.
type Outcome struct {
	Ref       string
	Status    OutcomeStatus
	RawStatus string
}

// Charger issues an outbound mobile money charge.
type Charger interface {
	Charge(ctx context.Context, amount decimal.Decimal, phone string) (Outcome, error)
}

type cashinClient interface {
	Cashin(ctx context.Context, amount decimal.Decimal, phone string) (paypack.CashinResult, error)
}

// PayPackCharger adapts the PayPack cash-in API to Charger.
type PayPackCharger struct {
	client cashinClient
}

// NewPayPackCharger wraps a PayPack client.
func NewPayPackCharger(client cashinClient) (*PayPackCharger, error) {
	if client == nil {
		return nil, fmt.Errorf("paypack client required")
	}
	return &PayPackCharger{client: client}, nil
}

// Charge requests a cash-in. A pending gateway status is the normal result:
// the buyer still has to approve the pull on their handset.
func (c *PayPackCharger) Charge(ctx context.Context, amount decimal.Decimal, phone string) (Outcome, error) {
	result, err := c.client.Cashin(ctx, amount, phone)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Ref:       result.Ref,
		Status:    outcomeFor(result.Status, result.Ref),
		RawStatus: result.Status,
	}, nil
}

// ValidateChargeAmount rejects amounts the gateway cannot charge exactly.
func ValidateChargeAmount(amount decimal.Decimal) error {
	_, err := paypack.WholeUnits(amount)
	return err
}

// outcomeFor maps a gateway status. An accepted request with a reference but
// no status yet is still awaiting the buyer, not failed.
func outcomeFor(status, ref string) OutcomeStatus {
	switch status {
	case "":
		if ref != "" {
			return OutcomePending
		}
		return OutcomeFailed
	case paypack.StatusPending:
		return OutcomePending
	case paypack.StatusSuccessful, "success":
		return OutcomeSuccess
	default:
		return OutcomeFailed
	}
}
