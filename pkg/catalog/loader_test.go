package catalog

import (
	"testing"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if c.Extraction.DocumentClass != "invoice" {
		t.Errorf("DocumentClass = %q, want invoice", c.Extraction.DocumentClass)
	}
	if c.Extraction.InferenceResult.InvoiceDate != "2025-06-15" {
		t.Errorf("InvoiceDate = %q, want 2025-06-15", c.Extraction.InferenceResult.InvoiceDate)
	}
	if len(c.Extraction.InferenceResult.LineItems) != 2 {
		t.Errorf("LineItems = %d, want 2", len(c.Extraction.InferenceResult.LineItems))
	}
	if len(c.Vendors) != 3 {
		t.Errorf("Vendors = %d, want 3", len(c.Vendors))
	}
}

func TestCatalog_SearchVendors(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name     string
		criteria string
		wantIDs  []string
	}{
		{"empty returns all", "", []string{"V001", "V002", "V003"}},
		{"name match ignores case", "abc", []string{"V001"}},
		{"category match", "utilities", []string{"V003"}},
		{"no match", "catering", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.SearchVendors(tt.criteria)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("SearchVendors(%q) = %d vendors, want %d", tt.criteria, len(got), len(tt.wantIDs))
			}
			for i, v := range got {
				if v.VendorID != tt.wantIDs[i] {
					t.Errorf("vendor[%d] = %s, want %s", i, v.VendorID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestCatalog_InvoiceCSV(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := "vendor_id,vendor_name,invoice_id,invoice_date,due_date,amount,currency,status\n" +
		"V001,ABC Corporation,INV-9,2025-06-15,2025-07-15,1250.00,USD,Pending"
	if got := c.InvoiceCSV("INV-9", false); got != want {
		t.Errorf("InvoiceCSV() = %q, want %q", got, want)
	}

	wantMapped := want + "\n\nVendor Mapping:\nvendor_id,sap_vendor_id,sap_company_code,payment_terms\nV001,SAP10001,1000,NET30"
	if got := c.InvoiceCSV("INV-9", true); got != wantMapped {
		t.Errorf("InvoiceCSV() with mapping = %q, want %q", got, wantMapped)
	}
}
