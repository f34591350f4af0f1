package invoice_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/landed-cost/internal/catalog"
	"github.com/noah-isme/landed-cost/internal/invoice"
	"github.com/noah-isme/landed-cost/internal/rules"
)

func workbookBytes(t *testing.T, headers []string, dataRows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheetName := f.GetSheetName(0)
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheetName, "A1", &row))
	for i := range dataRows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheetName, cell, &dataRows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func ordersWorkbook(t *testing.T) []byte {
	t.Helper()
	return workbookBytes(t,
		[]string{"交易编号", "订单状态", "国家", "SKU", "商品数量"},
		[][]any{
			{"T100", "shipped", "France", "SKU-A", 2},
			{"T100", "shipped", "France", "SKU-B", 1},
			{"T200", "shipped", "Germany", "SKU-A", 1},
		})
}

func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for name, data := range files {
		part, err := mw.CreateFormFile(name, name+".xlsx")
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(data))
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func newBuildHandler() *invoice.Handler {
	agg := newAggregator(
		catalog.Static{
			"SKU-A": {SKU: "SKU-A", Price: 10},
			"SKU-B": {SKU: "SKU-B", Price: 4},
		},
		[]rules.IossRule{{Country: "France", VATRate: 0.2, ServiceRate: 0.05}},
	)
	return &invoice.Handler{Agg: agg, DefaultExchangeRate: 6.9}
}

func TestBuildInvoices(t *testing.T) {
	h := newBuildHandler()
	costs := workbookBytes(t, []string{"交易编号", "实际运费"}, [][]any{{"T100", 9}, {"T200", 5}})

	body, contentType := multipartBody(t,
		map[string][]byte{"orders": ordersWorkbook(t), "shippingCosts": costs},
		map[string]string{"exchangeRate": "7.0"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.Build(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data struct {
			Orders   int `json:"orders"`
			Invoices []struct {
				OrderNumber  string  `json:"orderNumber"`
				Country      string  `json:"country"`
				ProductCost  float64 `json:"productCost"`
				ShippingCost float64 `json:"shippingCost"`
				TaxCost      float64 `json:"taxCost"`
				TotalCharges float64 `json:"totalCharges"`
			} `json:"invoices"`
			GrandTotal float64 `json:"grandTotal"`
			Display    struct {
				ExchangeRate        float64 `json:"exchangeRate"`
				GrandTotalConverted float64 `json:"grandTotalConverted"`
			} `json:"display"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Data.Orders)
	require.Len(t, resp.Data.Invoices, 2)

	first := resp.Data.Invoices[0]
	require.Equal(t, "T100", first.OrderNumber)
	require.InDelta(t, 24, first.ProductCost, 1e-9)      // 2*10 + 1*4
	require.InDelta(t, 9, first.ShippingCost, 1e-9)
	require.InDelta(t, 24*0.25, first.TaxCost, 1e-9)
	require.InDelta(t, 24+9+6, first.TotalCharges, 1e-9)

	second := resp.Data.Invoices[1]
	require.Equal(t, "T200", second.OrderNumber)
	require.Zero(t, second.TaxCost) // no IOSS rule for Germany

	require.InDelta(t, first.TotalCharges+second.TotalCharges, resp.Data.GrandTotal, 1e-9)
	require.InDelta(t, 7.0, resp.Data.Display.ExchangeRate, 1e-9)
	require.InDelta(t, resp.Data.GrandTotal/7.0, resp.Data.Display.GrandTotalConverted, 1e-9)
}

func TestBuildWithoutShippingCosts(t *testing.T) {
	h := newBuildHandler()
	body, contentType := multipartBody(t, map[string][]byte{"orders": ordersWorkbook(t)}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.Build(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data struct {
			Invoices []struct {
				ShippingCost float64 `json:"shippingCost"`
			} `json:"invoices"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Invoices, 2)
	for _, inv := range resp.Data.Invoices {
		require.Zero(t, inv.ShippingCost)
	}
}

func TestBuildRequiresOrdersFile(t *testing.T) {
	h := newBuildHandler()
	body, contentType := multipartBody(t, nil, map[string]string{"exchangeRate": "7.0"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.Build(rr, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestBuildRejectsNonWorkbookUpload(t *testing.T) {
	h := newBuildHandler()
	body, contentType := multipartBody(t, map[string][]byte{"orders": []byte("not an xlsx")}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.Build(rr, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
