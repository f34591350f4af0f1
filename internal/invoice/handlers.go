package invoice

import (
	"net/http"

	"github.com/noah-isme/landed-cost/internal/common"
	"github.com/noah-isme/landed-cost/internal/obs"
	"github.com/noah-isme/landed-cost/internal/source"
)

const maxUploadBytes = 16 << 20

// Handler builds invoices from uploaded order workbooks.
type Handler struct {
	Agg                 *Aggregator
	DefaultExchangeRate float64
}

// Build accepts a multipart order export (field "orders"), an optional
// shipping cost workbook (field "shippingCosts") and an optional
// "exchangeRate" form value, and returns one invoice per order number.
func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart payload", nil)
		return
	}
	ordersFile, _, err := r.FormFile("orders")
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, "orders workbook is required", nil)
		return
	}
	defer ordersFile.Close()

	orders, err := source.LoadOrders(ordersFile, r.FormValue("ordersSheet"), h.Agg.Log)
	if err != nil {
		obs.CountInvoiceBuild("rejected")
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
		return
	}
	if len(orders) == 0 {
		obs.CountInvoiceBuild("rejected")
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, "no usable order rows", nil)
		return
	}

	shippingCosts := map[string]float64{}
	if costsFile, _, err := r.FormFile("shippingCosts"); err == nil {
		defer costsFile.Close()
		shippingCosts, err = source.LoadShippingCosts(costsFile, r.FormValue("shippingCostsSheet"), h.Agg.Log)
		if err != nil {
			obs.CountInvoiceBuild("rejected")
			common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
			return
		}
	}

	productTotals, taxTotals, err := h.Agg.CalculateOrderTotals(r.Context(), orders)
	if err != nil {
		obs.CountInvoiceBuild("error")
		common.JSONError(w, http.StatusServiceUnavailable, "SOURCE_UNAVAILABLE", "reference data unavailable", nil)
		return
	}
	invoices := h.Agg.CreateInvoices(orders, productTotals, taxTotals, shippingCosts)

	var grandTotal float64
	for _, inv := range invoices {
		grandTotal += inv.TotalCharges
	}
	rate := common.ParseFloatDefault(r.FormValue("exchangeRate"), h.DefaultExchangeRate)

	payload := map[string]any{
		"orders":     len(orders),
		"invoices":   invoices,
		"grandTotal": grandTotal,
	}
	if rate > 0 {
		payload["display"] = map[string]any{
			"exchangeRate":        rate,
			"grandTotalConverted": grandTotal / rate,
		}
	}
	obs.CountInvoiceBuild("ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": payload})
}
