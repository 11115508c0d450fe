package leads

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/eventhub/eventhub-backend/api/middleware"
	"github.com/eventhub/eventhub-backend/api/responses"
	"github.com/eventhub/eventhub-backend/api/validators"
	internalleads "github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/pagination"
)

type leadReader interface {
	ListForVendor(ctx context.Context, params internalleads.ListParams) (*internalleads.ListResult, error)
	Get(ctx context.Context, vendorID, leadID uuid.UUID) (*models.Lead, error)
}

// VendorList pages through the calling vendor's leads, newest first.
func VendorList(svc leadReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := middleware.RequestVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListForVendor(r.Context(), internalleads.ListParams{
			VendorID: vendorID,
			Status:   strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:    limit,
			Cursor:   strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// VendorDetail returns one lead owned by the calling vendor.
func VendorDetail(svc leadReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := middleware.RequestVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		leadID, err := validators.ParseUUIDParam(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lead, err := svc.Get(r.Context(), vendorID, leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalleads.NewLeadDTO(*lead))
	}
}
