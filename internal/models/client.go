package models

import "time"

// Client entity (donneur d'ordre)
type Client struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Nom           string `gorm:"not null;index" json:"nom"` // Raison sociale ou nom
	NomCommercial string `gorm:"index" json:"nom_commercial,omitempty"`
	Contact       string `json:"contact,omitempty"` // Nom du contact principal
	Adresse       string `json:"adresse,omitempty"`
	CodePostal    string `json:"code_postal,omitempty"`
	Ville         string `json:"ville,omitempty"`
	Pays          string `json:"pays,omitempty"`
	Telephone     string `json:"telephone,omitempty"`
	Email         string `json:"email,omitempty"`
	SIRET         string `gorm:"index" json:"siret,omitempty"`
	TVAIntra      string `gorm:"index" json:"tva_intra,omitempty"` // Numéro TVA intracommunautaire
	DelaiPaiement int    `gorm:"default:30" json:"delai_paiement"` // jours
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
