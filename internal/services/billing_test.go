package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/models"
)

func setupBillingDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	err = db.AutoMigrate(
		&models.Client{}, &models.Fournisseur{},
		&models.TransportSlip{}, &models.FreightSlip{},
		&models.SequenceCounter{},
		&models.Invoice{}, &models.InvoiceSlip{},
		&models.Quote{}, &models.CreditNote{},
		&models.Payment{}, &models.AuditLog{},
	)
	require.NoError(t, err)
	return db
}

func seedClient(t *testing.T, db *gorm.DB) models.Client {
	t.Helper()
	client := models.Client{Nom: "Transports Morel", Ville: "Lyon", Email: "compta@morel.example"}
	require.NoError(t, db.Create(&client).Error)
	return client
}

func TestCreateInvoiceNumbersAndAmounts(t *testing.T) {
	db := setupBillingDB(t)
	client := seedClient(t, db)
	svc := NewBillingService(db, nil)
	at := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	for i, want := range []string{"F2406-01", "F2406-02", "F2406-03"} {
		inv, err := svc.CreateInvoice(DocumentInput{
			ClientID:     client.ID,
			DateEmission: at,
			Description:  fmt.Sprintf("Prestation %d", i+1),
			MontantHT:    100.00,
			TauxTVA:      20,
		}, nil, nil, 1)
		require.NoError(t, err)
		assert.Equal(t, want, inv.Numero)
		assert.Equal(t, 20.00, inv.TVA)
		assert.Equal(t, 120.00, inv.MontantTTC)
		assert.Equal(t, models.InvoiceStatusEnAttente, inv.Statut)
		require.NotNil(t, inv.Client)
		assert.Equal(t, "Transports Morel", inv.Client.Nom)
	}
}

func TestCreateInvoiceUnknownClient(t *testing.T) {
	db := setupBillingDB(t)
	svc := NewBillingService(db, nil)

	_, err := svc.CreateInvoice(DocumentInput{ClientID: 42, MontantHT: 100, TauxTVA: 20}, nil, nil, 1)
	assert.ErrorIs(t, err, ErrClientNotFound)

	// l'échec n'a pas consommé de numéro
	var count int64
	db.Model(&models.SequenceCounter{}).Count(&count)
	assert.Zero(t, count)
}

func TestInvoiceFromTransportSlip(t *testing.T) {
	db := setupBillingDB(t)
	client := seedClient(t, db)
	svc := NewBillingService(db, nil)

	slip := models.TransportSlip{
		ClientID: client.ID, VilleChargement: "Lyon", VilleLivraison: "Lille",
		DateChargement: time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
		PrixHT:         850.00, Status: models.SlipStatusDelivered,
	}
	require.NoError(t, db.Create(&slip).Error)

	inv, err := svc.InvoiceFromTransportSlip(slip.ID, 20, 1)
	require.NoError(t, err)
	assert.Equal(t, 850.00, inv.MontantHT)
	assert.Equal(t, 170.00, inv.TVA)
	require.NotNil(t, inv.SourceSlipID)
	assert.Equal(t, slip.ID, *inv.SourceSlipID)

	var reloaded models.TransportSlip
	require.NoError(t, db.First(&reloaded, slip.ID).Error)
	require.NotNil(t, reloaded.InvoiceID)
	assert.Equal(t, inv.ID, *reloaded.InvoiceID)

	// un bordereau déjà facturé ne se refacture pas
	_, err = svc.InvoiceFromTransportSlip(slip.ID, 20, 1)
	assert.ErrorIs(t, err, ErrSlipAlreadyBilled)
}

func TestInvoiceFromSlipsGrouped(t *testing.T) {
	db := setupBillingDB(t)
	client := seedClient(t, db)
	svc := NewBillingService(db, nil)

	s1 := models.TransportSlip{ClientID: client.ID, VilleChargement: "Lyon", VilleLivraison: "Paris", PrixHT: 400}
	s2 := models.FreightSlip{ClientID: client.ID, VilleChargement: "Lyon", VilleLivraison: "Nantes", PrixAchatHT: 300, PrixVenteHT: 500}
	require.NoError(t, db.Create(&s1).Error)
	require.NoError(t, db.Create(&s2).Error)

	refs := []SlipRef{{Kind: "transport", ID: s1.ID}, {Kind: "freight", ID: s2.ID}}
	inv, err := svc.InvoiceFromSlips(client.ID, refs, 20, 1)
	require.NoError(t, err)
	assert.Equal(t, 900.00, inv.MontantHT)
	assert.Len(t, inv.Slips, 2)

	other := models.Client{Nom: "Autre"}
	require.NoError(t, db.Create(&other).Error)
	_, err = svc.InvoiceFromSlips(other.ID, []SlipRef{{Kind: "transport", ID: s1.ID}}, 20, 1)
	require.Error(t, err)
}

func TestQuoteLifecycle(t *testing.T) {
	db := setupBillingDB(t)
	client := seedClient(t, db)
	svc := NewBillingService(db, nil)

	quote, err := svc.CreateQuote(DocumentInput{
		ClientID:     client.ID,
		DateEmission: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		Description:  "Navette hebdomadaire",
		MontantHT:    1200.00,
		TauxTVA:      20,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, "D2406-01", quote.Numero)
	assert.Equal(t, models.QuoteStatusEnAttente, quote.Statut)

	// refuser depuis accepte est interdit, accepter depuis en_attente est permis
	_, err = svc.UpdateQuoteStatus(quote.ID, models.QuoteStatusFacture, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	q, err := svc.UpdateQuoteStatus(quote.ID, models.QuoteStatusAccepte, 1)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusAccepte, q.Statut)

	inv, err := svc.ConvertQuote(quote.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1200.00, inv.MontantHT)
	assert.Equal(t, 240.00, inv.TVA)

	var reloaded models.Quote
	require.NoError(t, db.First(&reloaded, quote.ID).Error)
	assert.Equal(t, models.QuoteStatusFacture, reloaded.Statut)
	require.NotNil(t, reloaded.InvoiceID)
	assert.Equal(t, inv.ID, *reloaded.InvoiceID)

	// une seconde conversion est refusée
	_, err = svc.ConvertQuote(quote.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCreateCreditNoteValidation(t *testing.T) {
	db := setupBillingDB(t)
	client := seedClient(t, db)
	svc := NewBillingService(db, nil)

	inv, err := svc.CreateInvoice(DocumentInput{ClientID: client.ID, MontantHT: 500, TauxTVA: 20}, nil, nil, 1)
	require.NoError(t, err)

	_, err = svc.CreateCreditNote(CreditNoteInput{InvoiceID: inv.ID, MontantHT: 0, TauxTVA: 20}, 1)
	assert.ErrorIs(t, err, ErrInvalidBase)

	_, err = svc.CreateCreditNote(CreditNoteInput{InvoiceID: inv.ID, MontantHT: -50, TauxTVA: 20}, 1)
	assert.ErrorIs(t, err, ErrInvalidBase)

	// dépasse la facture source sans is_partial: refusé
	_, err = svc.CreateCreditNote(CreditNoteInput{InvoiceID: inv.ID, MontantHT: 600, TauxTVA: 20}, 1)
	assert.ErrorIs(t, err, ErrAmountExceedsInvoice)

	// is_partial lève le plafond
	note, err := svc.CreateCreditNote(CreditNoteInput{InvoiceID: inv.ID, MontantHT: 600, TauxTVA: 20, IsPartial: true}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.CreditNoteStatusEmis, note.Statut)
	assert.Regexp(t, `^A\d{4}-\d{2}$`, note.Numero)

	_, err = svc.CreateCreditNote(CreditNoteInput{InvoiceID: 999, MontantHT: 100, TauxTVA: 20}, 1)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestMarkCreditNoteAccounted(t *testing.T) {
	db := setupBillingDB(t)
	client := seedClient(t, db)
	svc := NewBillingService(db, nil)

	inv, err := svc.CreateInvoice(DocumentInput{ClientID: client.ID, MontantHT: 500, TauxTVA: 20}, nil, nil, 1)
	require.NoError(t, err)
	note, err := svc.CreateCreditNote(CreditNoteInput{InvoiceID: inv.ID, MontantHT: 100, TauxTVA: 20, Motif: "litige"}, 1)
	require.NoError(t, err)

	note, err = svc.MarkCreditNoteAccounted(note.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.CreditNoteStatusComptabilise, note.Statut)

	_, err = svc.MarkCreditNoteAccounted(note.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRecordPaymentMarksInvoicePaid(t *testing.T) {
	db := setupBillingDB(t)
	client := seedClient(t, db)
	svc := NewBillingService(db, nil)

	inv, err := svc.CreateInvoice(DocumentInput{ClientID: client.ID, MontantHT: 100, TauxTVA: 20}, nil, nil, 1)
	require.NoError(t, err)

	// acompte partiel: la facture reste en attente
	inv, err = svc.RecordPayment(inv.ID, 50, "virement", 1)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusEnAttente, inv.Statut)

	// solde: la facture passe payée
	inv, err = svc.RecordPayment(inv.ID, 70, "virement", 1)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaye, inv.Statut)

	_, err = svc.RecordPayment(inv.ID, -5, "virement", 1)
	assert.ErrorIs(t, err, ErrInvalidBase)
}

func TestRecordPaymentExactCentsMarksPaid(t *testing.T) {
	db := setupBillingDB(t)
	client := seedClient(t, db)
	svc := NewBillingService(db, nil)

	// 0.01 + 0.06 fait 0.06999... en flottant binaire; la somme décimale
	// doit quand même couvrir le TTC de 0.07
	inv := models.Invoice{
		Numero: "F2406-90", ClientID: client.ID, DateEmission: time.Now(),
		MontantHT: 0.06, TVA: 0.01, MontantTTC: 0.07,
		Statut: models.InvoiceStatusEnAttente,
	}
	require.NoError(t, db.Create(&inv).Error)

	got, err := svc.RecordPayment(inv.ID, 0.01, "virement", 1)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusEnAttente, got.Statut)

	got, err = svc.RecordPayment(inv.ID, 0.06, "virement", 1)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaye, got.Statut)
}

func TestConvertQuoteRollsBackWhole(t *testing.T) {
	db := setupBillingDB(t)
	client := seedClient(t, db)
	svc := NewBillingService(db, nil)

	quote := models.Quote{
		Numero: "D2406-01", ClientID: client.ID, DateEmission: time.Now(),
		MontantHT: 1200, TVA: 240, MontantTTC: 1440,
		Statut: models.QuoteStatusAccepte,
	}
	require.NoError(t, db.Create(&quote).Error)

	// fait échouer la mise à jour du devis pour vérifier que la facture
	// émise dans la même transaction est annulée avec elle
	boom := errors.New("quote update failed")
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("fail_quote_update", func(d *gorm.DB) {
		if d.Statement.Table == "quotes" {
			d.AddError(boom)
		}
	}))
	_, err := svc.ConvertQuote(quote.ID, 1)
	require.ErrorIs(t, err, boom)

	// rien de commis: pas de facture, pas de numéro consommé, devis intact
	var invoices, counters int64
	db.Model(&models.Invoice{}).Count(&invoices)
	db.Model(&models.SequenceCounter{}).Count(&counters)
	assert.Zero(t, invoices)
	assert.Zero(t, counters)
	var reloaded models.Quote
	require.NoError(t, db.First(&reloaded, quote.ID).Error)
	assert.Equal(t, models.QuoteStatusAccepte, reloaded.Statut)

	// le retry après réparation n'émet qu'une seule facture
	require.NoError(t, db.Callback().Update().Remove("fail_quote_update"))
	inv, err := svc.ConvertQuote(quote.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1200.00, inv.MontantHT)
	db.Model(&models.Invoice{}).Count(&invoices)
	assert.Equal(t, int64(1), invoices)
}

func TestAuditTrailWritten(t *testing.T) {
	db := setupBillingDB(t)
	client := seedClient(t, db)
	svc := NewBillingService(db, nil)

	inv, err := svc.CreateInvoice(DocumentInput{ClientID: client.ID, MontantHT: 100, TauxTVA: 20}, nil, nil, 7)
	require.NoError(t, err)

	var entry models.AuditLog
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", "Invoice", inv.ID).First(&entry).Error)
	assert.Equal(t, uint(7), entry.UserID)
	assert.Equal(t, "create", entry.Action)
	assert.Equal(t, inv.Numero, entry.NewValue)
}
