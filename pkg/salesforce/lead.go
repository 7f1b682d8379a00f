package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// LeadObject is the sObject name of web leads.
const LeadObject = "Lead"

// Lead is the subset of a Salesforce Lead record read back for dedupe.
type Lead struct {
	ID     string `json:"Id" salesforce:"Id"`
	Email  string `json:"Email" salesforce:"Email"`
	Status string `json:"Status" salesforce:"Status"`
}

// FindLeadByEmail returns the open Lead with the given email, or nil.
func FindLeadByEmail(ctx context.Context, c Client, email string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT Id, Email, Status FROM Lead WHERE Email = '%s' AND IsConverted = false ORDER BY CreatedDate DESC LIMIT 1",
		escapeSoql(email),
	)
	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrapf(err, "sf: find lead by email %s", email)
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// UpsertLeadByEmail updates the open Lead sharing fields["Email"] or
// creates one. It returns the Lead id and whether it was created.
func UpsertLeadByEmail(ctx context.Context, c Client, fields map[string]any) (string, bool, error) {
	email, _ := fields["Email"].(string)
	if email == "" {
		return "", false, eris.New("sf: lead Email is required")
	}
	if last, _ := fields["LastName"].(string); last == "" {
		return "", false, eris.New("sf: lead LastName is required")
	}

	existing, err := FindLeadByEmail(ctx, c, email)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		if err := c.UpdateOne(ctx, LeadObject, existing.ID, fields); err != nil {
			return "", false, eris.Wrapf(err, "sf: update lead %s", existing.ID)
		}
		return existing.ID, false, nil
	}

	id, err := c.InsertOne(ctx, LeadObject, fields)
	if err != nil {
		return "", false, eris.Wrap(err, "sf: create lead")
	}
	return id, true, nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
