package crm

import (
	"context"
	"strings"

	"github.com/sells-group/card-ingest/internal/model"
	"github.com/sells-group/card-ingest/pkg/salesforce"
)

// unknownCompany fills Salesforce's required Lead.Company when the card had none.
const unknownCompany = "[not provided]"

// SalesforceForwarder upserts stored leads as Salesforce Lead records. An
// existing unconverted Lead with the same email is updated; otherwise a new
// Lead is created.
type SalesforceForwarder struct {
	client salesforce.Client
}

// NewSalesforceForwarder creates a forwarder on top of a Salesforce client.
func NewSalesforceForwarder(c salesforce.Client) *SalesforceForwarder {
	return &SalesforceForwarder{client: c}
}

// Target implements Forwarder.
func (f *SalesforceForwarder) Target() string { return "salesforce" }

// Forward implements Forwarder.
func (f *SalesforceForwarder) Forward(ctx context.Context, lead *model.StoredLead) (*Ack, error) {
	fields := leadFields(lead)
	return deliver(ctx, f.Target(), func(ctx context.Context) (*Ack, error) {
		if lead.Email != "" {
			existing, err := salesforce.FindLeadByEmail(ctx, f.client, lead.Email)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				if err := salesforce.UpdateLead(ctx, f.client, existing.ID, fields); err != nil {
					return nil, err
				}
				return &Ack{RemoteID: existing.ID}, nil
			}
		}
		id, err := salesforce.CreateLead(ctx, f.client, fields)
		if err != nil {
			return nil, err
		}
		return &Ack{RemoteID: id}, nil
	})
}

// leadFields maps a stored lead onto Salesforce Lead fields. Absent values
// are omitted so an update never blanks a field already in Salesforce.
func leadFields(lead *model.StoredLead) map[string]any {
	first, last := splitName(lead.Name)
	if last == "" {
		last = "Unknown"
	}
	company := lead.Company
	if company == "" {
		company = unknownCompany
	}

	fields := map[string]any{
		"LastName":   last,
		"Company":    company,
		"LeadSource": "Business Card",
	}
	set := func(key, val string) {
		if val != "" {
			fields[key] = val
		}
	}
	set("FirstName", first)
	set("Email", lead.Email)
	set("Phone", lead.Phone)
	set("Title", lead.JobTitle)
	set("Website", lead.Website)
	set("Description", lead.Source)
	return fields
}

// splitName treats the last word as the surname.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}
