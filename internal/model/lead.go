package model

import "time"

// LeadStatus tracks a lead through the sales process.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "novo"
	LeadStatusContacted LeadStatus = "contatado"
	LeadStatusConverted LeadStatus = "convertido"
	LeadStatusLost      LeadStatus = "perdido"
)

// OriginLandingPage tags leads captured by the public simulator.
const OriginLandingPage = "landing_page"

// PersonalData is the contact information a prospect leaves.
type PersonalData struct {
	Name     string `json:"nome" yaml:"nome" validate:"required,max=120"`
	Email    string `json:"email" yaml:"email" validate:"required,email"`
	WhatsApp string `json:"whatsapp" yaml:"whatsapp" validate:"required,min=8,max=20"`
}

// Lead is a captured prospect paired with the quote they received.
type Lead struct {
	ID            string       `json:"id" yaml:"id"`
	Timestamp     time.Time    `json:"timestamp" yaml:"timestamp"`
	Personal      PersonalData `json:"dados_pessoais" yaml:"dados_pessoais"`
	StateID       int          `json:"estado_id,omitempty" yaml:"estado_id,omitempty"`
	DistributorID int          `json:"distribuidora_id" yaml:"distribuidora_id"`
	Quote         QuoteResult  `json:"simulacao" yaml:"simulacao"`
	Status        LeadStatus   `json:"status" yaml:"status"`
	Origin        string       `json:"origem" yaml:"origem"`
}

// LeadStats summarizes captured leads.
type LeadStats struct {
	Total       int `json:"total" yaml:"total"`
	Eligible    int `json:"elegiveis" yaml:"elegiveis"`
	NotEligible int `json:"nao_elegiveis" yaml:"nao_elegiveis"`
}

// Valid reports whether s is one of the known statuses.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusConverted, LeadStatusLost:
		return true
	}
	return false
}
