package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sinergia/leadquote/pkg/salesforce"
)

// salesforceCompany fills the Company field Salesforce requires on Lead;
// simulator leads are households.
const salesforceCompany = "Pessoa Física"

// SalesforceSink upserts leads as Salesforce Lead records keyed by email.
type SalesforceSink struct {
	client salesforce.Client
}

// NewSalesforceSink returns a sink writing through client.
func NewSalesforceSink(client salesforce.Client) *SalesforceSink {
	return &SalesforceSink{client: client}
}

func (s *SalesforceSink) Name() string { return "salesforce" }

func (s *SalesforceSink) Push(ctx context.Context, rec Record) (string, error) {
	id, _, err := salesforce.UpsertLeadByEmail(ctx, s.client, salesforceFields(rec))
	return id, err
}

func salesforceFields(rec Record) map[string]any {
	l := rec.Lead
	first, last := splitName(l.Personal.Name)
	q := l.Quote

	fields := map[string]any{
		"FirstName":   first,
		"LastName":    last,
		"Company":     salesforceCompany,
		"Email":       l.Personal.Email,
		"MobilePhone": l.Personal.WhatsApp,
		"LeadSource":  "Web",
		"State":       rec.StateName,
		"Description": fmt.Sprintf("Simulação %s: %s, %.0f kWh, desconto %s%%, elegível: %t. %s",
			l.ID, q.DistributorName, q.Consumption, q.DiscountPercentage.String(), q.Eligible, q.Reason),
	}
	if first == "" {
		delete(fields, "FirstName")
	}
	return fields
}

// splitName puts everything but the last word in first.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}
