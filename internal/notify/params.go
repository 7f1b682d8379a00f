package notify

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sinergia/leadquote/internal/model"
)

// brazil is UTC-3 all year since daylight saving was abolished in 2019.
var brazil = time.FixedZone("BRT", -3*60*60)

var printer = message.NewPrinter(language.BrazilianPortuguese)

const (
	labelYes         = "Sim"
	labelNo          = "Não"
	labelEligible    = "ELEGÍVEL"
	labelNotEligible = "NÃO ELEGÍVEL"
	noReason         = "N/A"
)

// Message is the lead data rendered into both templates.
type Message struct {
	Lead      *model.Lead
	StateName string
	SentAt    time.Time
}

func (m Message) distributorName() string {
	if m.Lead.Quote.DistributorName != "" {
		return m.Lead.Quote.DistributorName
	}
	return fmt.Sprintf("#%d", m.Lead.DistributorID)
}

func (m Message) reason() string {
	if m.Lead.Quote.Reason != "" {
		return m.Lead.Quote.Reason
	}
	return noReason
}

// FormatNumber renders v with Brazilian separators and at most two
// fraction digits: 1234.5 -> "1.234,5".
func FormatNumber(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

func formatDiscount(q model.QuoteResult) string {
	return FormatNumber(q.DiscountPercentage.InexactFloat64())
}

// ResultMessage is the personalised paragraph sent to the customer.
func ResultMessage(q model.QuoteResult) string {
	if q.Eligible {
		return fmt.Sprintf("Ótimas notícias! Você pode ter %s%% de desconto na sua conta de energia com a portabilidade. "+
			"Entre em contato conosco para dar continuidade ao processo.", formatDiscount(q))
	}
	reason := q.Reason
	if reason == "" {
		reason = noReason
	}
	return fmt.Sprintf("Infelizmente, com base no seu perfil atual, você não atende aos critérios para portabilidade de energia. "+
		"Motivo: %s. Entre em contato conosco para mais informações sobre outras opções disponíveis.", reason)
}

// CustomerParams builds the template parameters of the confirmation sent
// to the lead.
func CustomerParams(m Message, fromName string) map[string]string {
	l := m.Lead
	at := m.SentAt.In(brazil)
	elegivel := labelNo
	if l.Quote.Eligible {
		elegivel = labelYes
	}
	return map[string]string{
		"to_email":  l.Personal.Email,
		"to_name":   l.Personal.Name,
		"from_name": fromName,

		"cliente_nome":     l.Personal.Name,
		"cliente_email":    l.Personal.Email,
		"cliente_whatsapp": l.Personal.WhatsApp,

		"estado":              m.StateName,
		"distribuidora":       m.distributorName(),
		"consumo_kwh":         FormatNumber(l.Quote.Consumption),
		"desconto_percentual": formatDiscount(l.Quote),
		"elegivel":            elegivel,
		"motivo":              m.reason(),

		"data_simulacao": at.Format("02/01/2006"),
		"hora_simulacao": at.Format("15:04:05"),

		"mensagem_resultado": ResultMessage(l.Quote),
	}
}

// SalesParams builds the template parameters of the notification sent to
// the sales team.
func SalesParams(m Message, salesAddress string) map[string]string {
	l := m.Lead
	status := labelNotEligible
	if l.Quote.Eligible {
		status = labelEligible
	}
	return map[string]string{
		"to_email":  salesAddress,
		"to_name":   "Equipe Comercial",
		"from_name": "Sistema de Leads",
		"subject":   fmt.Sprintf("Novo Lead: %s - %s", l.Personal.Name, status),

		"lead_id":       l.ID,
		"lead_nome":     l.Personal.Name,
		"lead_email":    l.Personal.Email,
		"lead_whatsapp": l.Personal.WhatsApp,
		"lead_status":   status,

		"simulacao_estado":        m.StateName,
		"simulacao_distribuidora": m.distributorName(),
		"simulacao_consumo":       FormatNumber(l.Quote.Consumption),
		"simulacao_desconto":      formatDiscount(l.Quote),
		"simulacao_motivo":        m.reason(),

		"data_lead": m.SentAt.In(brazil).Format("02/01/2006 15:04:05"),
	}
}
