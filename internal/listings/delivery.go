package listings

import (
	"time"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/purchases"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

const hoursPerDay = 24

// deliveryStatuses are the listing states that carry a delivery commitment.
var deliveryStatuses = []enums.SellStatus{enums.SellStatusPurchased, enums.SellStatusCompleted}

// EstimatedDeliveryDate returns the stored delivery date or, failing that,
// one projected from the payment completion or purchase date.
func EstimatedDeliveryDate(sell *models.Sell) *time.Time {
	switch {
	case sell.DeliveryDate != nil:
		d := dateOnly(*sell.DeliveryDate)
		return &d
	case sell.PaymentCompletedDate != nil:
		d := purchases.DeliveryDate(*sell.PaymentCompletedDate, sell.DeliveryDays)
		return &d
	case sell.PurchasedDate != nil && sell.PaymentStatus == enums.ListingPaymentPaid:
		d := purchases.DeliveryDate(*sell.PurchasedDate, sell.DeliveryDays)
		return &d
	}
	return nil
}

// DaysUntilDelivery is negative once the estimated date has passed. Nil when
// no estimate exists.
func DaysUntilDelivery(sell *models.Sell, now time.Time) *int {
	estimate := EstimatedDeliveryDate(sell)
	if estimate == nil {
		return nil
	}
	days := int(estimate.Sub(dateOnly(now)).Hours() / hoursPerDay)
	return &days
}

// IsDeliveryOverdue reports whether the estimated delivery date is before today.
func IsDeliveryOverdue(sell *models.Sell, now time.Time) bool {
	days := DaysUntilDelivery(sell, now)
	return days != nil && *days < 0
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
