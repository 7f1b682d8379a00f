package crm

import (
	"context"

	"github.com/jomei/notionapi"

	"github.com/sinergia/leadquote/pkg/notion"
)

// Notion property names of the lead database.
const (
	propName        = "Nome"
	propEmail       = "Email"
	propWhatsApp    = "WhatsApp"
	propLeadID      = "Lead ID"
	propState       = "Estado"
	propDistributor = "Distribuidora"
	propConsumption = "Consumo (kWh)"
	propDiscount    = "Desconto (%)"
	propEligible    = "Elegível"
	propReason      = "Motivo"
	propStatus      = "Status"
)

// NotionSink upserts leads into a Notion database keyed by email.
type NotionSink struct {
	client notion.Client
	dbID   string
}

// NewNotionSink returns a sink writing into database dbID.
func NewNotionSink(client notion.Client, dbID string) *NotionSink {
	return &NotionSink{client: client, dbID: dbID}
}

func (s *NotionSink) Name() string { return "notion" }

func (s *NotionSink) Push(ctx context.Context, rec Record) (string, error) {
	id, _, err := notion.UpsertPage(ctx, s.client, s.dbID, propEmail, rec.Lead.Personal.Email, notionProperties(rec))
	return id, err
}

func notionProperties(rec Record) notionapi.Properties {
	l := rec.Lead
	q := l.Quote
	return notionapi.Properties{
		propName:        notion.Title(l.Personal.Name),
		propEmail:       notion.Text(l.Personal.Email),
		propWhatsApp:    notion.Text(l.Personal.WhatsApp),
		propLeadID:      notion.Text(l.ID),
		propState:       notion.Text(rec.StateName),
		propDistributor: notion.Text(q.DistributorName),
		propConsumption: notionapi.NumberProperty{Number: q.Consumption},
		propDiscount:    notionapi.NumberProperty{Number: q.DiscountPercentage.InexactFloat64()},
		propEligible:    notionapi.CheckboxProperty{Checkbox: q.Eligible},
		propReason:      notion.Text(q.Reason),
		propStatus:      notionapi.StatusProperty{Status: notionapi.Status{Name: string(l.Status)}},
	}
}
