package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// BankingDetails are the payee bank coordinates printed on an invoice
type BankingDetails struct {
	BankAccount string `yaml:"bank_account" json:"bank_account"`
	BankCode    string `yaml:"bank_code" json:"bank_code"`
	SwiftCode   string `yaml:"swift_code" json:"swift_code"`
}

// LineItem is one billed line of an invoice
type LineItem struct {
	Description string `yaml:"description" json:"description"`
	Amount      string `yaml:"amount" json:"amount"`
}

// UtilityDetails are the meter fields of utility invoices
type UtilityDetails struct {
	MeterNumber   string `yaml:"meter_number" json:"meter_number"`
	DeltaReadings string `yaml:"delta_readings" json:"delta_readings"`
}

// InferenceResult holds the fields extracted from an invoice
type InferenceResult struct {
	Vendor               string         `yaml:"vendor" json:"vendor"`
	InvoiceDate          string         `yaml:"invoice_date" json:"invoice_date"`
	PaymentTerms         string         `yaml:"payment_terms" json:"payment_terms"`
	DueDate              string         `yaml:"due_date" json:"due_date"`
	Currency             string         `yaml:"currency" json:"currency"`
	InvoiceTotalAmount   string         `yaml:"invoice_total_amount" json:"invoice_total_amount"`
	SpecialRemarks       string         `yaml:"special_remarks" json:"special_remarks"`
	VendorBankingDetails BankingDetails `yaml:"vendor_banking_details" json:"vendor_banking_details"`
	LineItems            []LineItem     `yaml:"line_items" json:"line_items"`
	UtilityDetails       UtilityDetails `yaml:"utility_details" json:"utility_details"`
}

// Extraction is the result of classifying and extracting a document
type Extraction struct {
	DocumentClass   string          `yaml:"document_class" json:"document_class"`
	Confidence      float64         `yaml:"confidence" json:"confidence"`
	InferenceResult InferenceResult `yaml:"inference_result" json:"inference_result"`
}

// Vendor is a supplier known to the accounts payable system
type Vendor struct {
	VendorID     string `yaml:"vendor_id" json:"vendor_id"`
	VendorName   string `yaml:"vendor_name" json:"vendor_name"`
	Category     string `yaml:"category" json:"category"`
	ContactEmail string `yaml:"contact_email" json:"contact_email"`
}

// InvoiceExport is the CSV layout of an exported invoice
type InvoiceExport struct {
	Header        string   `yaml:"header"`
	Row           string   `yaml:"row"`
	MappingHeader string   `yaml:"mapping_header"`
	MappingRows   []string `yaml:"mapping_rows"`
}

// Catalog is the embedded sample data
type Catalog struct {
	Extraction    Extraction    `yaml:"extraction"`
	Vendors       []Vendor      `yaml:"vendors"`
	InvoiceExport InvoiceExport `yaml:"invoice_export"`
}

var (
	loadOnce sync.Once
	loaded   *Catalog
	loadErr  error
)

// Load parses the embedded catalog once
func Load() (*Catalog, error) {
	loadOnce.Do(func() {
		var c Catalog
		if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
			loadErr = fmt.Errorf("failed to parse catalog.yaml: %w", err)
			return
		}
		loaded = &c
	})
	return loaded, loadErr
}

// SearchVendors returns vendors whose name or category contains criteria,
// ignoring case. An empty criteria returns every vendor.
func (c *Catalog) SearchVendors(criteria string) []Vendor {
	if criteria == "" {
		return append([]Vendor(nil), c.Vendors...)
	}

	needle := strings.ToLower(criteria)
	out := make([]Vendor, 0, len(c.Vendors))
	for _, v := range c.Vendors {
		if strings.Contains(strings.ToLower(v.VendorName), needle) ||
			strings.Contains(strings.ToLower(v.Category), needle) {
			out = append(out, v)
		}
	}
	return out
}

// InvoiceCSV renders the export of invoiceID, optionally followed by the
// SAP vendor mapping section.
func (c *Catalog) InvoiceCSV(invoiceID string, withVendorMapping bool) string {
	e := c.InvoiceExport
	var b strings.Builder
	b.WriteString(e.Header)
	b.WriteString("\n")
	b.WriteString(strings.ReplaceAll(e.Row, "{invoice_id}", invoiceID))

	if withVendorMapping {
		b.WriteString("\n\nVendor Mapping:\n")
		b.WriteString(e.MappingHeader)
		for _, row := range e.MappingRows {
			b.WriteString("\n")
			b.WriteString(row)
		}
	}
	return b.String()
}
