package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/eventhub/eventhub-backend/api/responses"
	"github.com/eventhub/eventhub-backend/internal/payments"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/metrics"
)

const maxWebhookBody = 1 << 20

type PaymentWebhookService interface {
	VerifySignature(body []byte, signature string) bool
	HandleWebhook(ctx context.Context, input payments.WebhookInput) (*payments.WebhookResult, error)
}

type paymentWebhookGuard interface {
	CheckAndMark(ctx context.Context, transactionID, status string) (bool, error)
	Delete(ctx context.Context, transactionID, status string) error
}

type webhookObserver interface {
	Observe(outcome string)
}

type paymentCallback struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	RawPayload    json.RawMessage `json:"raw_payload"`
}

// PaymentWebhook applies gateway payment callbacks. Repeated deliveries of the
// same transaction and status are acknowledged without reprocessing. The
// signature is verified before the dedupe guard is consulted, so unsigned or
// forged requests never learn whether a transaction was seen.
func PaymentWebhook(svc PaymentWebhookService, guard paymentWebhookGuard, observer webhookObserver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			observe(observer, metrics.WebhookOutcomeError)
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var callback paymentCallback
		if err := json.NewDecoder(bytes.NewReader(body)).Decode(&callback); err != nil {
			observe(observer, metrics.WebhookOutcomeError)
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}
		callback.TransactionID = strings.TrimSpace(callback.TransactionID)
		status := strings.ToLower(strings.TrimSpace(callback.Status))
		if callback.TransactionID == "" || status == "" {
			observe(observer, metrics.WebhookOutcomeError)
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "transaction_id and status are required"))
			return
		}

		signature := r.Header.Get(payments.SignatureHeader)
		if signature == "" {
			observe(observer, metrics.WebhookOutcomeBadSignature)
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing"))
			return
		}
		if !svc.VerifySignature(body, signature) {
			observe(observer, metrics.WebhookOutcomeBadSignature)
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		seen, err := guard.CheckAndMark(ctx, callback.TransactionID, status)
		if err != nil {
			observe(observer, metrics.WebhookOutcomeError)
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if seen {
			observe(observer, metrics.WebhookOutcomeDuplicate)
			responses.WriteSuccess(w, &payments.WebhookResult{Outcome: metrics.WebhookOutcomeDuplicate})
			return
		}

		result, err := svc.HandleWebhook(ctx, payments.WebhookInput{
			TransactionID: callback.TransactionID,
			Status:        status,
			RawPayload:    callback.RawPayload,
			Signature:     signature,
			Body:          body,
		})
		if err != nil {
			_ = guard.Delete(ctx, callback.TransactionID, status)
			if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
				observe(observer, metrics.WebhookOutcomeBadSignature)
			} else {
				observe(observer, metrics.WebhookOutcomeError)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		observe(observer, result.Outcome)
		if logg != nil {
			logCtx := logg.WithFields(ctx, map[string]any{
				"transaction_id": callback.TransactionID,
				"status":         status,
				"outcome":        result.Outcome,
				"order_id":       result.OrderID.String(),
			})
			logg.Info(logCtx, "payment webhook processed")
		}
		responses.WriteSuccess(w, result)
	}
}

func observe(observer webhookObserver, outcome string) {
	if observer == nil {
		return
	}
	observer.Observe(outcome)
}
