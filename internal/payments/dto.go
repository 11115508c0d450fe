package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/internal/pricing"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// PaymentDTO is the API shape of a payment. Gateway responses stay internal.
type PaymentDTO struct {
	ID            uuid.UUID            `json:"id"`
	OrderID       uuid.UUID            `json:"order_id"`
	Amount        decimal.Decimal      `json:"amount"`
	PaymentType   enums.PaymentType    `json:"payment_type"`
	PaymentMethod *enums.PaymentMethod `json:"payment_method,omitempty"`
	TransactionID *string              `json:"transaction_id,omitempty"`
	Status        enums.PaymentStatus  `json:"status"`
	FailureReason *string              `json:"failure_reason,omitempty"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

func NewPaymentDTO(p models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		PaymentType:   p.PaymentType,
		PaymentMethod: p.PaymentMethod,
		TransactionID: p.TransactionID,
		Status:        p.Status,
		FailureReason: p.FailureReason,
		CompletedAt:   p.CompletedAt,
		CreatedAt:     p.CreatedAt,
	}
}

// Balance is the amount still owed on an order.
type Balance struct {
	OrderID     uuid.UUID       `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	BalanceDue  decimal.Decimal `json:"balance_due"`
}

// History is the balance plus every payment made against the order.
type History struct {
	Balance
	PaymentStatus enums.OrderPaymentStatus `json:"payment_status"`
	Payments      []PaymentDTO             `json:"payments"`
}

// TokenPaymentState answers whether the order's token has been paid.
type TokenPaymentState struct {
	OrderID   uuid.UUID `json:"order_id"`
	TokenPaid bool      `json:"token_paid"`
}

// WebhookResult tells the caller what the delivery changed.
type WebhookResult struct {
	Outcome   string    `json:"outcome"`
	PaymentID uuid.UUID `json:"payment_id,omitempty"`
	OrderID   uuid.UUID `json:"order_id,omitempty"`
}

func balanceOf(order *models.Order, payments []models.Payment) Balance {
	paid := decimal.Zero
	for _, p := range payments {
		if p.Status == enums.PaymentStatusCompleted && p.PaymentType != enums.PaymentTypeRefund {
			paid = paid.Add(p.Amount)
		}
	}
	return Balance{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
		TotalPaid:   pricing.Round2(paid),
		BalanceDue:  pricing.BalanceDue(order.TotalAmount, paid),
	}
}
