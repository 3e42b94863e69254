package models

import "time"

// Fournisseur (transporteur affrété)
type Fournisseur struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Nom          string `gorm:"not null;index" json:"nom"`
	Contact      string `json:"contact,omitempty"`
	Adresse      string `json:"adresse,omitempty"`
	CodePostal   string `json:"code_postal,omitempty"`
	Ville        string `json:"ville,omitempty"`
	Pays         string `json:"pays,omitempty"`
	Telephone    string `json:"telephone,omitempty"`
	Email        string `json:"email,omitempty"`
	SIRET        string `gorm:"index" json:"siret,omitempty"`
	TVAIntra     string `gorm:"index" json:"tva_intra,omitempty"`
	TypeVehicule string `json:"type_vehicule,omitempty"` // ex: semi, porteur, VL
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
