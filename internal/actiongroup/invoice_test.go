package actiongroup

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrzesz33/bedrock_mac/internal/models"
	"github.com/jrzesz33/bedrock_mac/pkg/catalog"
)

func newInvoiceActions(t *testing.T) *InvoiceActions {
	t.Helper()
	c, err := catalog.Load()
	require.NoError(t, err)
	a := NewInvoiceActions(c, testLogger())
	a.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return a
}

func apiEvent(path string, params map[string]any) models.APIActionEvent {
	return models.APIActionEvent{
		ActionGroup: "InvoiceProcessing",
		APIPath:     path,
		RequestBody: models.APIRequestBody{Parameters: params},
	}
}

func TestInvoiceActions_VerifyInvoiceDocuments(t *testing.T) {
	resp, err := newInvoiceActions(t).HandleEvent(context.Background(), apiEvent("verify_invoice_documents", map[string]any{"document": "inv.pdf"}))
	require.NoError(t, err)

	assert.Equal(t, "1.0", resp.MessageVersion)
	assert.Equal(t, "application/json", resp.Response.ContentType)
	assert.Empty(t, resp.Response.Error)

	var extraction catalog.Extraction
	require.NoError(t, json.Unmarshal([]byte(resp.Response.Content), &extraction))
	assert.Equal(t, "ABC Corporation", extraction.InferenceResult.Vendor)
	assert.Equal(t, 0.98, extraction.Confidence)
}

func TestInvoiceActions_RecordApplicationDetails(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   map[string]string
	}{
		{
			name:   "valid JSON string",
			params: map[string]any{"invoice_id": "INV-1", "invoice_data": `{"total":"10"}`},
			want: map[string]string{
				"status":    "success",
				"message":   "Invoice details recorded successfully with ID: INV-1",
				"timestamp": "2026-10-19T09:00:00.000000",
			},
		},
		{
			name:   "object parameter",
			params: map[string]any{"invoice_id": "INV-2", "invoice_data": map[string]any{"total": 10}},
			want: map[string]string{
				"status":    "success",
				"message":   "Invoice details recorded successfully with ID: INV-2",
				"timestamp": "2026-10-19T09:00:00.000000",
			},
		},
		{
			name:   "invalid JSON",
			params: map[string]any{"invoice_id": "INV-3", "invoice_data": "{not json"},
			want:   map[string]string{"status": "error", "message": "Invalid JSON format in invoice_data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newInvoiceActions(t).HandleEvent(context.Background(), apiEvent("record_application_details", tt.params))
			require.NoError(t, err)

			var got map[string]string
			require.NoError(t, json.Unmarshal([]byte(resp.Response.Content), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoiceActions_RetrieveVendorList(t *testing.T) {
	resp, err := newInvoiceActions(t).HandleEvent(context.Background(), apiEvent("/retrieve_vendor_list", map[string]any{"search_criteria": "SUPPLIES"}))
	require.NoError(t, err)

	var vendors []catalog.Vendor
	require.NoError(t, json.Unmarshal([]byte(resp.Response.Content), &vendors))
	require.Len(t, vendors, 1)
	assert.Equal(t, "V002", vendors[0].VendorID)
}

func TestInvoiceActions_GenerateCSV(t *testing.T) {
	a := newInvoiceActions(t)

	resp, err := a.HandleEvent(context.Background(), apiEvent("generate_csv", map[string]any{"invoice_id": "INV-7"}))
	require.NoError(t, err)
	assert.Equal(t, "text/csv", resp.Response.ContentType)
	assert.Contains(t, resp.Response.Content, "V001,ABC Corporation,INV-7,")
	assert.Contains(t, resp.Response.Content, "Vendor Mapping:")

	resp, err = a.HandleEvent(context.Background(), apiEvent("generate_csv", map[string]any{"invoice_id": "INV-7", "include_vendor_mapping": false}))
	require.NoError(t, err)
	assert.NotContains(t, resp.Response.Content, "Vendor Mapping:")
}

func TestInvoiceActions_UnknownPath(t *testing.T) {
	resp, err := newInvoiceActions(t).HandleEvent(context.Background(), apiEvent("approve_payment", nil))
	require.NoError(t, err)

	assert.Equal(t, &models.APIActionResponse{
		MessageVersion: "1.0",
		Response:       models.APIResponseBody{Error: "Unknown API path: approve_payment"},
	}, resp)
}
