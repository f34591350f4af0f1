package shipping

import (
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/landed-cost/internal/catalog"
	"github.com/noah-isme/landed-cost/internal/common"
	"github.com/noah-isme/landed-cost/internal/obs"
)

// Handler exposes HTTP endpoints for tariff rule discovery.
type Handler struct {
	Calc     *Calculator
	Catalog  catalog.Provider
	Validate *validator.Validate
}

type searchRequest struct {
	Destination       string             `json:"destination" validate:"required"`
	VolumetricDivisor float64            `json:"volumetricDivisor" validate:"gte=0"`
	Items             []catalog.LineItem `json:"items" validate:"required,min=1,dive"`
}

type matchPayload struct {
	RuleID            string  `json:"ruleId"`
	Carrier           string  `json:"carrier"`
	Country           string  `json:"country"`
	Region            string  `json:"region"`
	Attribute         string  `json:"attribute"`
	WeightMin         float64 `json:"weightMinGram"`
	WeightMax         float64 `json:"weightMaxGram"`
	ShipmentWeight    float64 `json:"shipmentWeightGram"`
	Fee               float64 `json:"fee"`
	DeliveryEstimate  string  `json:"deliveryEstimate"`
	VolumetricDivisor float64 `json:"volumetricDivisor,omitempty"`
}

// Search resolves every tariff rule applicable to the posted shipment.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
		return
	}

	catalog.Enrich(h.Catalog, req.Items, h.Calc.Log)
	matches, err := h.Calc.FindApplicableRules(r.Context(), req.Items, req.Destination, req.VolumetricDivisor)
	if err != nil {
		obs.CountRuleSearch("error")
		common.JSONError(w, http.StatusServiceUnavailable, "SOURCE_UNAVAILABLE", "rule source unavailable", nil)
		return
	}

	payload := make([]matchPayload, 0, len(matches))
	for _, m := range matches {
		payload = append(payload, matchPayload{
			RuleID:            m.Rule.ID,
			Carrier:           m.Rule.Carrier,
			Country:           m.Rule.Country,
			Region:            m.Rule.Region,
			Attribute:         m.Rule.Attribute,
			WeightMin:         m.Rule.WeightMin,
			WeightMax:         m.Rule.WeightMax,
			ShipmentWeight:    m.ShipmentWeight,
			Fee:               m.Fee,
			DeliveryEstimate:  m.Estimate,
			VolumetricDivisor: m.Rule.VolumetricDivisor,
		})
	}
	if len(payload) == 0 {
		obs.CountRuleSearch("empty")
	} else {
		obs.CountRuleSearch("matched")
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": payload})
}
