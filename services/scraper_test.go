package services

import (
	"net/url"
	"strings"
	"testing"

	"github.com/huamanraj/investai-new/model"
)

func TestValidateFilingsURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantCompany string
		wantErr     bool
	}{
		{
			name:        "valid url",
			url:         "https://www.screener.example/stock-share-price/tata-motors/TATAMOTORS/500570/financials-annual-reports/",
			wantCompany: "TATA MOTORS",
		},
		{
			name:        "valid url without trailing slash",
			url:         "https://host.example/stock-share-price/infosys/INFY/500209/financials-annual-reports",
			wantCompany: "INFOSYS",
		},
		{
			name:    "wrong section",
			url:     "https://host.example/stock-share-price/infosys/INFY/500209/quarterly-results/",
			wantErr: true,
		},
		{
			name:    "http not allowed",
			url:     "http://host.example/stock-share-price/infosys/INFY/500209/financials-annual-reports/",
			wantErr: true,
		},
		{
			name:    "missing segments",
			url:     "https://host.example/stock-share-price/infosys/financials-annual-reports/",
			wantErr: true,
		},
		{
			name:    "not a url",
			url:     "definitely not a url",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			company, err := ValidateFilingsURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if company != tt.wantCompany {
				t.Errorf("company = %q, want %q", company, tt.wantCompany)
			}
		})
	}
}

func TestParsePDFLinks(t *testing.T) {
	page := `<html><body>
		<a href="/reports/annual-report-2023.pdf">Annual Report 2023</a>
		<a href="https://cdn.example.com/q1-2024-results.pdf?dl=1">Q1 2024 Results</a>
		<a href="/reports/annual-report-2023.pdf">Annual Report 2023 (duplicate)</a>
		<a href="/about-us">About</a>
		<a href="/files/brochure.PDF">Company brochure</a>
	</body></html>`

	base, _ := url.Parse("https://host.example/stock-share-price/acme/ACME/1/financials-annual-reports/")
	infos, err := parsePDFLinks(strings.NewReader(page), base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(infos) != 3 {
		t.Fatalf("got %d links, want 3 (deduplicated, non-pdf excluded)", len(infos))
	}

	if infos[0].SourceURL != "https://host.example/reports/annual-report-2023.pdf" {
		t.Errorf("relative link not resolved: %s", infos[0].SourceURL)
	}
	if infos[0].DocType != model.DocumentTypeAnnualReport {
		t.Errorf("doc type = %s, want annual_report", infos[0].DocType)
	}
	if infos[0].Period != "2023" {
		t.Errorf("period = %q, want 2023", infos[0].Period)
	}

	if infos[1].DocType != model.DocumentTypeQuarterlyReport {
		t.Errorf("doc type = %s, want quarterly_report", infos[1].DocType)
	}
}

func TestClassifyFiling(t *testing.T) {
	tests := []struct {
		title      string
		wantType   model.DocumentType
		wantPeriod string
	}{
		{"Annual Report 2022-23", model.DocumentTypeAnnualReport, "2022-23"},
		{"Q3 FY2024 Investor Presentation", model.DocumentTypeQuarterlyReport, "2024"},
		{"Audited Financial Statements 2021", model.DocumentTypeFinancials, "2021"},
		{"Corporate Governance", model.DocumentTypeOther, ""},
	}

	for _, tt := range tests {
		docType, period := classifyFiling(tt.title, "")
		if docType != tt.wantType {
			t.Errorf("%q: type = %s, want %s", tt.title, docType, tt.wantType)
		}
		if period != tt.wantPeriod {
			t.Errorf("%q: period = %q, want %q", tt.title, period, tt.wantPeriod)
		}
	}
}
