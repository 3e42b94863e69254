package models

import "time"

// DocumentType identifies a billing document family and its numbering prefix.
type DocumentType string

const (
	DocTypeInvoice    DocumentType = "F" // facture
	DocTypeQuote      DocumentType = "D" // devis
	DocTypeCreditNote DocumentType = "A" // avoir
)

// Statuts facture
const (
	InvoiceStatusEnAttente = "en_attente"
	InvoiceStatusPaye      = "paye"
)

// Statuts devis
const (
	QuoteStatusEnAttente = "en_attente"
	QuoteStatusAccepte   = "accepte"
	QuoteStatusRefuse    = "refuse"
	QuoteStatusFacture   = "facture"
)

// Statuts avoir
const (
	CreditNoteStatusEmis         = "emis"
	CreditNoteStatusComptabilise = "comptabilise"
)

// Invoice (facture). Numero et montants sont figés à l'émission; seul le
// statut évolue ensuite.
type Invoice struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Numero       string    `gorm:"size:20;uniqueIndex;not null" json:"numero"`
	ClientID     uint      `gorm:"not null;index" json:"client_id"`
	Client       *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	DateEmission time.Time `gorm:"not null" json:"date_emission"`
	Description  string    `json:"description,omitempty"`
	MontantHT    float64   `gorm:"type:decimal(12,2);not null" json:"montant_ht"`
	TVA          float64   `gorm:"type:decimal(12,2);not null" json:"tva"`
	MontantTTC   float64   `gorm:"type:decimal(12,2);not null" json:"montant_ttc"`
	Statut       string    `gorm:"size:20;default:'en_attente'" json:"statut"`
	LienPDF      string    `json:"lien_pdf,omitempty"`

	// Bordereau source direct (facture simple), nullable. Les factures
	// groupées passent par la table de jointure invoice_slips.
	SourceSlipID *uint `gorm:"index" json:"source_slip_id,omitempty"`

	Slips []InvoiceSlip `gorm:"foreignKey:InvoiceID" json:"slips,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPaid returns true once the invoice has been settled.
func (i *Invoice) IsPaid() bool { return i.Statut == InvoiceStatusPaye }

// InvoiceSlip : jointure facture groupée -> bordereaux
type InvoiceSlip struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	InvoiceID uint   `gorm:"not null;index" json:"invoice_id"`
	SlipID    uint   `gorm:"not null;index" json:"slip_id"`
	SlipKind  string `gorm:"size:10;not null" json:"slip_kind"` // transport | freight
	CreatedAt time.Time `json:"created_at"`
}

// Quote (devis)
type Quote struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Numero       string    `gorm:"size:20;uniqueIndex;not null" json:"numero"`
	ClientID     uint      `gorm:"not null;index" json:"client_id"`
	Client       *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	DateEmission time.Time `gorm:"not null" json:"date_emission"`
	Description  string    `json:"description,omitempty"`
	MontantHT    float64   `gorm:"type:decimal(12,2);not null" json:"montant_ht"`
	TVA          float64   `gorm:"type:decimal(12,2);not null" json:"tva"`
	MontantTTC   float64   `gorm:"type:decimal(12,2);not null" json:"montant_ttc"`
	Statut       string    `gorm:"size:20;default:'en_attente'" json:"statut"`
	LienPDF      string    `json:"lien_pdf,omitempty"`

	// renseigné quand le devis est converti en facture
	InvoiceID *uint `gorm:"index" json:"invoice_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreditNote (avoir) rattaché à une facture source.
type CreditNote struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Numero       string    `gorm:"size:20;uniqueIndex;not null" json:"numero"`
	ClientID     uint      `gorm:"not null;index" json:"client_id"`
	Client       *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	InvoiceID    uint      `gorm:"not null;index" json:"invoice_id"`
	Invoice      *Invoice  `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	DateEmission time.Time `gorm:"not null" json:"date_emission"`
	Motif        string    `json:"motif,omitempty"`
	MontantHT    float64   `gorm:"type:decimal(12,2);not null" json:"montant_ht"`
	TVA          float64   `gorm:"type:decimal(12,2);not null" json:"tva"`
	MontantTTC   float64   `gorm:"type:decimal(12,2);not null" json:"montant_ttc"`
	IsPartial    bool      `json:"is_partial"`
	Statut       string    `gorm:"size:20;default:'emis'" json:"statut"`
	LienPDF      string    `json:"lien_pdf,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SequenceCounter : un compteur par type de document et par période (AAMM).
// L'incrément se fait dans la transaction d'émission du document.
type SequenceCounter struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	DocType       string `gorm:"size:1;not null;uniqueIndex:idx_seq_type_period" json:"doc_type"`
	Period        string `gorm:"size:4;not null;uniqueIndex:idx_seq_type_period" json:"period"` // AAMM, ex: 2406
	CurrentNumber int    `gorm:"not null;default:0" json:"current_number"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Payment tied to invoices
type Payment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	InvoiceID   uint      `gorm:"not null;index" json:"invoice_id"`
	Date        time.Time `gorm:"not null" json:"date"`
	Montant     float64   `gorm:"type:decimal(12,2);not null" json:"montant"`
	Mode        string    `gorm:"not null" json:"mode"` // ex: virement, CB, chèque
	Commentaire string    `json:"commentaire,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
