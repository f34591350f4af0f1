package pricing

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/landed-cost/internal/catalog"
	"github.com/noah-isme/landed-cost/internal/common"
	"github.com/noah-isme/landed-cost/internal/obs"
	"github.com/noah-isme/landed-cost/internal/shipping"
)

// Handler exposes the landed-cost quote endpoint.
type Handler struct {
	Engine              *Engine
	Catalog             catalog.Provider
	Validate            *validator.Validate
	DefaultExchangeRate float64
}

type quoteRequest struct {
	Destination    string             `json:"destination" validate:"required"`
	RuleID         string             `json:"ruleId"`
	ShipmentWeight float64            `json:"shipmentWeightGram" validate:"gte=0"`
	ExchangeRate   float64            `json:"exchangeRate" validate:"gte=0"`
	Items          []catalog.LineItem `json:"items" validate:"required,min=1,dive"`
}

// Quote prices the posted shipment against the caller-selected rule.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
		return
	}

	catalog.Enrich(h.Catalog, req.Items, h.Engine.Log)

	var sel *shipping.Selection
	if req.RuleID != "" {
		rule, ok, err := h.Engine.Shipping.Rules.RuleByID(r.Context(), req.RuleID)
		if err != nil {
			obs.CountQuote("error")
			common.JSONError(w, http.StatusServiceUnavailable, "SOURCE_UNAVAILABLE", "rule source unavailable", nil)
			return
		}
		if !ok {
			obs.CountQuote("rejected")
			common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, "unknown shipping rule", nil)
			return
		}
		sel = &shipping.Selection{Rule: rule, ShipmentWeight: req.ShipmentWeight}
	}

	result, ruleInfo, taxInfo, err := h.Engine.CalculateTotals(r.Context(), req.Items, req.Destination, sel)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			obs.CountQuote("rejected")
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		obs.CountQuote("error")
		common.JSONError(w, http.StatusServiceUnavailable, "SOURCE_UNAVAILABLE", "reference data unavailable", nil)
		return
	}

	rate := req.ExchangeRate
	if rate <= 0 {
		rate = h.DefaultExchangeRate
	}
	payload := map[string]any{
		"result": result,
		"rule":   ruleInfo,
		"tax":    taxInfo,
	}
	if rate > 0 {
		payload["display"] = map[string]any{
			"exchangeRate":   rate,
			"totalConverted": result.TotalAmount / rate,
		}
	}
	obs.CountQuote("ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": payload})
}
