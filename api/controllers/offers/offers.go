package offers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/api/middleware"
	"github.com/eventhub/eventhub-backend/api/responses"
	"github.com/eventhub/eventhub-backend/api/validators"
	internaloffers "github.com/eventhub/eventhub-backend/internal/offers"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/pagination"
)

type proposeRequest struct {
	ThreadID        string           `json:"thread_id" validate:"required,uuid"`
	ListingID       string           `json:"listing_id" validate:"required,uuid"`
	OfferedPrice    decimal.Decimal  `json:"offered_price" validate:"money"`
	CustomizedPrice *decimal.Decimal `json:"customized_price" validate:"omitempty,money"`
	Customization   json.RawMessage  `json:"customization"`
	Message         *string          `json:"message" validate:"omitempty,max=2000"`
	EventType       *string          `json:"event_type" validate:"omitempty,max=100"`
	EventDate       *string          `json:"event_date"`
	EventTime       *string          `json:"event_time" validate:"omitempty,max=20"`
	VenueAddress    *string          `json:"venue_address" validate:"omitempty,max=500"`
	GuestCount      *int             `json:"guest_count" validate:"omitempty,min=1"`
}

type priceRequest struct {
	Price   decimal.Decimal `json:"price" validate:"money"`
	Message *string         `json:"message" validate:"omitempty,max=2000"`
}

// Propose opens a negotiation on a listing inside a chat thread.
func Propose(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req proposeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eventDate, err := validators.ParseDate("event_date", req.EventDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.Propose(r.Context(), internaloffers.ProposeInput{
			ThreadID:        uuid.MustParse(req.ThreadID),
			ListingID:       uuid.MustParse(req.ListingID),
			UserID:          actor.UserID,
			OfferedPrice:    req.OfferedPrice,
			CustomizedPrice: req.CustomizedPrice,
			Customization:   req.Customization,
			Message:         trimmed(req.Message),
			Event: models.EventDetails{
				EventType:    trimmed(req.EventType),
				EventDate:    eventDate,
				EventTime:    trimmed(req.EventTime),
				VenueAddress: trimmed(req.VenueAddress),
				GuestCount:   req.GuestCount,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

// Detail returns one offer to either party.
func Detail(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := validators.ParseUUIDParam(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := svc.Get(r.Context(), actor, offerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// ListMine pages through the caller's own offers.
func ListMine(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListMine(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListByThread pages through the offers made inside one chat thread.
func ListByThread(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		threadID, err := validators.ParseUUIDParam(r, "threadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByThread(r.Context(), actor, threadID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListForVendor pages through offers addressed to the caller's vendor.
func ListForVendor(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := middleware.RequestVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForVendor(r.Context(), vendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// VendorCounter answers a pending offer with a counter price.
func VendorCounter(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := middleware.RequestVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := validators.ParseUUIDParam(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req priceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := svc.VendorCounter(r.Context(), internaloffers.CounterInput{
			OfferID:      offerID,
			VendorID:     vendorID,
			CounterPrice: req.Price,
			Message:      trimmed(req.Message),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// UserReCounter answers a vendor counter with a new customer price.
func UserReCounter(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := validators.ParseUUIDParam(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req priceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := svc.UserReCounter(r.Context(), internaloffers.ReCounterInput{
			OfferID:  offerID,
			UserID:   actor.UserID,
			NewPrice: req.Price,
			Message:  trimmed(req.Message),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// VendorAccept accepts the customer's price and returns the created order.
func VendorAccept(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return vendorAction(logg, func(r *http.Request, offerID, vendorID uuid.UUID) (any, error) {
		return svc.VendorAccept(r.Context(), offerID, vendorID)
	})
}

// VendorReject closes an offer without an order.
func VendorReject(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return vendorAction(logg, func(r *http.Request, offerID, vendorID uuid.UUID) (any, error) {
		return svc.VendorReject(r.Context(), offerID, vendorID)
	})
}

// UserAcceptCounter accepts the vendor's counter price and returns the created order.
func UserAcceptCounter(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return customerAction(logg, func(r *http.Request, offerID, userID uuid.UUID) (any, error) {
		return svc.UserAcceptCounter(r.Context(), offerID, userID)
	})
}

// UserWithdraw lets the customer abandon an open offer.
func UserWithdraw(svc internaloffers.Service, logg *logger.Logger) http.HandlerFunc {
	return customerAction(logg, func(r *http.Request, offerID, userID uuid.UUID) (any, error) {
		return svc.UserWithdraw(r.Context(), offerID, userID)
	})
}

type offerAction func(r *http.Request, offerID, ownerID uuid.UUID) (any, error)

func vendorAction(logg *logger.Logger, fn offerAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := middleware.RequestVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		runAction(w, r, logg, vendorID, fn)
	}
}

func customerAction(logg *logger.Logger, fn offerAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		runAction(w, r, logg, actor.UserID, fn)
	}
}

func runAction(w http.ResponseWriter, r *http.Request, logg *logger.Logger, ownerID uuid.UUID, fn offerAction) {
	offerID, err := validators.ParseUUIDParam(r, "offerId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	result, err := fn(r, offerID, ownerID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

func listParams(r *http.Request) (internaloffers.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return internaloffers.ListParams{}, err
	}
	return internaloffers.ListParams{
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
