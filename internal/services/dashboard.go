package services

import (
	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/models"
)

// DashboardService aggregates the figures shown on the back-office home page.
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService { return &DashboardService{db: db} }

// Figures is the dashboard payload.
type Figures struct {
	RevenueTTC     float64          `json:"revenue_ttc"`      // factures payées
	OutstandingTTC float64          `json:"outstanding_ttc"`  // factures en attente
	CreditedTTC    float64          `json:"credited_ttc"`     // avoirs comptabilisés
	MargeHT        float64          `json:"marge_ht"`         // bordereaux affrètement livrés
	SlipCounts     map[string]int64 `json:"slip_counts"`      // par statut, transport + affrètement
	OpenQuotes     int64            `json:"open_quotes"`
}

// Compute runs the aggregate queries. Sums are done in SQL; only the small
// status breakdown is assembled in Go.
func (s *DashboardService) Compute() (*Figures, error) {
	f := &Figures{SlipCounts: map[string]int64{}}

	if err := s.db.Model(&models.Invoice{}).Where("statut = ?", models.InvoiceStatusPaye).
		Select("COALESCE(SUM(montant_ttc), 0)").Scan(&f.RevenueTTC).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Invoice{}).Where("statut = ?", models.InvoiceStatusEnAttente).
		Select("COALESCE(SUM(montant_ttc), 0)").Scan(&f.OutstandingTTC).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.CreditNote{}).Where("statut = ?", models.CreditNoteStatusComptabilise).
		Select("COALESCE(SUM(montant_ttc), 0)").Scan(&f.CreditedTTC).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.FreightSlip{}).Where("status = ?", models.SlipStatusDelivered).
		Select("COALESCE(SUM(prix_vente_ht - prix_achat_ht), 0)").Scan(&f.MargeHT).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		Status string
		N      int64
	}
	for _, model := range []any{&models.TransportSlip{}, &models.FreightSlip{}} {
		var rows []statusCount
		if err := s.db.Model(model).Select("status, COUNT(*) as n").Group("status").Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			f.SlipCounts[r.Status] += r.N
		}
	}

	if err := s.db.Model(&models.Quote{}).Where("statut = ?", models.QuoteStatusEnAttente).
		Count(&f.OpenQuotes).Error; err != nil {
		return nil, err
	}
	return f, nil
}
