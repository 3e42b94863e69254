package models

import "time"

// SlipStatus is the state of a transport or freight job.
type SlipStatus string

const (
	SlipStatusWaiting   SlipStatus = "waiting"
	SlipStatusLoaded    SlipStatus = "loaded"
	SlipStatusDelivered SlipStatus = "delivered"
	SlipStatusDispute   SlipStatus = "dispute"
)

// slipTransitions lists the allowed status moves. A dispute can be opened from
// any state and is resolved by marking the job delivered.
var slipTransitions = map[SlipStatus][]SlipStatus{
	SlipStatusWaiting:   {SlipStatusLoaded, SlipStatusDispute},
	SlipStatusLoaded:    {SlipStatusDelivered, SlipStatusDispute},
	SlipStatusDelivered: {SlipStatusDispute},
	SlipStatusDispute:   {SlipStatusDelivered},
}

// ValidSlipStatus reports whether s is a known status value.
func ValidSlipStatus(s SlipStatus) bool {
	_, ok := slipTransitions[s]
	return ok
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to SlipStatus) bool {
	for _, t := range slipTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// TransportSlip : bordereau de transport (prix de vente simple)
type TransportSlip struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	ClientID      uint        `gorm:"not null;index" json:"client_id"`
	Client        *Client     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	FournisseurID uint        `gorm:"index" json:"fournisseur_id"`
	Fournisseur   *Fournisseur `gorm:"foreignKey:FournisseurID" json:"fournisseur,omitempty"`
	DateChargement time.Time  `json:"date_chargement"`
	DateLivraison  time.Time  `json:"date_livraison"`
	VilleChargement string    `json:"ville_chargement"`
	VilleLivraison  string    `json:"ville_livraison"`
	Marchandise     string    `json:"marchandise,omitempty"`
	PrixHT          float64   `gorm:"type:decimal(12,2)" json:"prix_ht"`
	Status          SlipStatus `gorm:"size:20;default:'waiting'" json:"status"`
	InvoiceID       *uint     `gorm:"index" json:"invoice_id,omitempty"` // facture dérivée, nullable
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FreightSlip : bordereau d'affrètement (achat/vente, marge)
type FreightSlip struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	ClientID      uint        `gorm:"not null;index" json:"client_id"`
	Client        *Client     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	FournisseurID uint        `gorm:"index" json:"fournisseur_id"`
	Fournisseur   *Fournisseur `gorm:"foreignKey:FournisseurID" json:"fournisseur,omitempty"`
	DateChargement time.Time  `json:"date_chargement"`
	DateLivraison  time.Time  `json:"date_livraison"`
	VilleChargement string    `json:"ville_chargement"`
	VilleLivraison  string    `json:"ville_livraison"`
	Marchandise     string    `json:"marchandise,omitempty"`
	PrixAchatHT     float64   `gorm:"type:decimal(12,2)" json:"prix_achat_ht"` // payé au fournisseur
	PrixVenteHT     float64   `gorm:"type:decimal(12,2)" json:"prix_vente_ht"` // facturé au client
	Status          SlipStatus `gorm:"size:20;default:'waiting'" json:"status"`
	InvoiceID       *uint     `gorm:"index" json:"invoice_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Marge returns the absolute margin on the job.
func (f *FreightSlip) Marge() float64 {
	return f.PrixVenteHT - f.PrixAchatHT
}

// TauxMarge returns the margin rate as a percentage of the selling price.
func (f *FreightSlip) TauxMarge() float64 {
	if f.PrixVenteHT == 0 {
		return 0
	}
	return (f.PrixVenteHT - f.PrixAchatHT) / f.PrixVenteHT * 100
}
