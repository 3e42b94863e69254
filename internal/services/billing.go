package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/models"
	"github.com/transfret/backoffice/internal/pdf"
)

var (
	ErrClientNotFound     = errors.New("client not found")
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrQuoteNotFound      = errors.New("quote not found")
	ErrCreditNoteNotFound = errors.New("credit note not found")
	ErrSlipNotFound       = errors.New("slip not found")
	ErrSlipAlreadyBilled  = errors.New("slip already has an invoice")
	ErrAmountExceedsInvoice = errors.New("credit note amount exceeds source invoice")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// DocumentRenderer renders a billing document to a stored artifact and
// returns its path. Nil disables rendering (tests).
type DocumentRenderer interface {
	Render(doc pdf.Document) (string, error)
}

// BillingService implements document emission: number generation, amount
// computation and persistence happen in one transaction, so a failed insert
// also releases the reserved sequence value.
type BillingService struct {
	db       *gorm.DB
	renderer DocumentRenderer
}

func NewBillingService(db *gorm.DB, renderer DocumentRenderer) *BillingService {
	return &BillingService{db: db, renderer: renderer}
}

// DocumentInput carries the caller-provided fields of an emission request.
type DocumentInput struct {
	ClientID     uint
	DateEmission time.Time
	Description  string
	MontantHT    float64
	TauxTVA      float64
}

// SlipRef identifies one slip of a grouped invoice.
type SlipRef struct {
	Kind string `json:"kind"` // "transport" | "freight"
	ID   uint   `json:"id"`
}

func (s *BillingService) loadClient(tx *gorm.DB, id uint) (*models.Client, error) {
	var client models.Client
	if err := tx.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (s *BillingService) audit(tx *gorm.DB, userID uint, entity string, entityID uint, action, oldV, newV string) {
	// audit écriture best-effort, ne bloque jamais l'opération métier
	_ = tx.Create(&models.AuditLog{UserID: userID, EntityType: entity, EntityID: entityID, Action: action, OldValue: oldV, NewValue: newV}).Error
}

func (s *BillingService) render(doc pdf.Document) string {
	if s.renderer == nil {
		return ""
	}
	path, err := s.renderer.Render(doc)
	if err != nil {
		// la facture reste valide sans artefact; le PDF est régénérable à la demande
		return ""
	}
	return path
}

func clientAddress(c *models.Client) string {
	return fmt.Sprintf("%s, %s %s", c.Adresse, c.CodePostal, c.Ville)
}

// CreateInvoice emits an invoice for a client. sourceSlip links a single
// slip; slips links several (facture groupée). Both may be empty for a free
// invoice.
func (s *BillingService) CreateInvoice(in DocumentInput, sourceSlip *SlipRef, slips []SlipRef, userID uint) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = s.createInvoiceTx(tx, in, sourceSlip, slips, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.Preload("Client").Preload("Slips").First(inv, inv.ID).Error; err != nil {
		return nil, fmt.Errorf("reload invoice: %w", err)
	}
	return inv, nil
}

// createInvoiceTx does the emission work inside the caller's transaction, so
// callers can tie the invoice to further writes (quote conversion) and a
// failure anywhere rolls the whole emission back.
func (s *BillingService) createInvoiceTx(tx *gorm.DB, in DocumentInput, sourceSlip *SlipRef, slips []SlipRef, userID uint) (*models.Invoice, error) {
	tva, ttc, err := ComputeAmounts(in.MontantHT, in.TauxTVA)
	if err != nil {
		return nil, err
	}
	if in.DateEmission.IsZero() {
		in.DateEmission = time.Now()
	}
	client, err := s.loadClient(tx, in.ClientID)
	if err != nil {
		return nil, err
	}
	numero, err := NextNumber(tx, models.DocTypeInvoice, in.DateEmission)
	if err != nil {
		return nil, err
	}
	inv := models.Invoice{
		Numero:       numero,
		ClientID:     in.ClientID,
		DateEmission: in.DateEmission,
		Description:  in.Description,
		MontantHT:    in.MontantHT,
		TVA:          tva,
		MontantTTC:   ttc,
		Statut:       models.InvoiceStatusEnAttente,
	}
	if sourceSlip != nil {
		inv.SourceSlipID = &sourceSlip.ID
	}
	inv.LienPDF = s.render(pdf.Document{
		Kind: "FACTURE", Numero: numero, DateEmission: in.DateEmission,
		ClientNom: client.Nom, ClientAdresse: clientAddress(client),
		Description: in.Description, MontantHT: in.MontantHT, TVA: tva, MontantTTC: ttc,
	})
	if err := tx.Create(&inv).Error; err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	if sourceSlip != nil {
		if err := s.attachSlip(tx, &inv, *sourceSlip); err != nil {
			return nil, err
		}
	}
	for _, ref := range slips {
		if err := s.attachSlip(tx, &inv, ref); err != nil {
			return nil, err
		}
		if err := tx.Create(&models.InvoiceSlip{InvoiceID: inv.ID, SlipID: ref.ID, SlipKind: ref.Kind}).Error; err != nil {
			return nil, fmt.Errorf("link slip: %w", err)
		}
	}
	s.audit(tx, userID, "Invoice", inv.ID, "create", "", inv.Numero)
	return &inv, nil
}

// attachSlip marks a slip as billed by this invoice. A slip owns at most one
// derived invoice.
func (s *BillingService) attachSlip(tx *gorm.DB, inv *models.Invoice, ref SlipRef) error {
	switch ref.Kind {
	case "transport":
		var slip models.TransportSlip
		if err := tx.First(&slip, ref.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlipNotFound
			}
			return err
		}
		if slip.InvoiceID != nil {
			return ErrSlipAlreadyBilled
		}
		return tx.Model(&slip).Update("invoice_id", inv.ID).Error
	case "freight":
		var slip models.FreightSlip
		if err := tx.First(&slip, ref.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlipNotFound
			}
			return err
		}
		if slip.InvoiceID != nil {
			return ErrSlipAlreadyBilled
		}
		return tx.Model(&slip).Update("invoice_id", inv.ID).Error
	default:
		return fmt.Errorf("unknown slip kind %q", ref.Kind)
	}
}

// InvoiceFromTransportSlip bills a single transport slip at its selling price.
func (s *BillingService) InvoiceFromTransportSlip(slipID uint, tauxTVA float64, userID uint) (*models.Invoice, error) {
	var slip models.TransportSlip
	if err := s.db.First(&slip, slipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlipNotFound
		}
		return nil, err
	}
	in := DocumentInput{
		ClientID:    slip.ClientID,
		Description: slipDescription("Transport", slip.VilleChargement, slip.VilleLivraison, slip.DateChargement),
		MontantHT:   slip.PrixHT,
		TauxTVA:     tauxTVA,
	}
	ref := SlipRef{Kind: "transport", ID: slip.ID}
	return s.CreateInvoice(in, &ref, nil, userID)
}

// InvoiceFromFreightSlip bills a single freight slip at its selling price.
func (s *BillingService) InvoiceFromFreightSlip(slipID uint, tauxTVA float64, userID uint) (*models.Invoice, error) {
	var slip models.FreightSlip
	if err := s.db.First(&slip, slipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlipNotFound
		}
		return nil, err
	}
	in := DocumentInput{
		ClientID:    slip.ClientID,
		Description: slipDescription("Affrètement", slip.VilleChargement, slip.VilleLivraison, slip.DateChargement),
		MontantHT:   slip.PrixVenteHT,
		TauxTVA:     tauxTVA,
	}
	ref := SlipRef{Kind: "freight", ID: slip.ID}
	return s.CreateInvoice(in, &ref, nil, userID)
}

// InvoiceFromSlips bills several slips of the same client on one grouped
// invoice; the base amount is the sum of the slips' selling prices.
func (s *BillingService) InvoiceFromSlips(clientID uint, refs []SlipRef, tauxTVA float64, userID uint) (*models.Invoice, error) {
	if len(refs) == 0 {
		return nil, errors.New("no slips to bill")
	}
	var total float64
	for _, ref := range refs {
		switch ref.Kind {
		case "transport":
			var slip models.TransportSlip
			if err := s.db.First(&slip, ref.ID).Error; err != nil {
				return nil, ErrSlipNotFound
			}
			if slip.ClientID != clientID {
				return nil, fmt.Errorf("slip %d belongs to another client", ref.ID)
			}
			total += slip.PrixHT
		case "freight":
			var slip models.FreightSlip
			if err := s.db.First(&slip, ref.ID).Error; err != nil {
				return nil, ErrSlipNotFound
			}
			if slip.ClientID != clientID {
				return nil, fmt.Errorf("slip %d belongs to another client", ref.ID)
			}
			total += slip.PrixVenteHT
		default:
			return nil, fmt.Errorf("unknown slip kind %q", ref.Kind)
		}
	}
	in := DocumentInput{
		ClientID:    clientID,
		Description: fmt.Sprintf("Facture groupée - %d bordereaux", len(refs)),
		MontantHT:   total,
		TauxTVA:     tauxTVA,
	}
	return s.CreateInvoice(in, nil, refs, userID)
}

func slipDescription(kind, from, to string, date time.Time) string {
	return fmt.Sprintf("%s %s → %s du %s", kind, from, to, date.Format("02/01/2006"))
}

// CreateQuote emits a quote.
func (s *BillingService) CreateQuote(in DocumentInput, userID uint) (*models.Quote, error) {
	tva, ttc, err := ComputeAmounts(in.MontantHT, in.TauxTVA)
	if err != nil {
		return nil, err
	}
	if in.DateEmission.IsZero() {
		in.DateEmission = time.Now()
	}
	var quote models.Quote
	err = s.db.Transaction(func(tx *gorm.DB) error {
		client, err := s.loadClient(tx, in.ClientID)
		if err != nil {
			return err
		}
		numero, err := NextNumber(tx, models.DocTypeQuote, in.DateEmission)
		if err != nil {
			return err
		}
		quote = models.Quote{
			Numero:       numero,
			ClientID:     in.ClientID,
			DateEmission: in.DateEmission,
			Description:  in.Description,
			MontantHT:    in.MontantHT,
			TVA:          tva,
			MontantTTC:   ttc,
			Statut:       models.QuoteStatusEnAttente,
		}
		quote.LienPDF = s.render(pdf.Document{
			Kind: "DEVIS", Numero: numero, DateEmission: in.DateEmission,
			ClientNom: client.Nom, ClientAdresse: clientAddress(client),
			Description: in.Description, MontantHT: in.MontantHT, TVA: tva, MontantTTC: ttc,
		})
		if err := tx.Create(&quote).Error; err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
		s.audit(tx, userID, "Quote", quote.ID, "create", "", quote.Numero)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.Preload("Client").First(&quote, quote.ID).Error; err != nil {
		return nil, fmt.Errorf("reload quote: %w", err)
	}
	return &quote, nil
}

var quoteTransitions = map[string][]string{
	models.QuoteStatusEnAttente: {models.QuoteStatusAccepte, models.QuoteStatusRefuse},
	models.QuoteStatusAccepte:   {models.QuoteStatusFacture},
}

// UpdateQuoteStatus applies an allowed status transition.
func (s *BillingService) UpdateQuoteStatus(quoteID uint, statut string, userID uint) (*models.Quote, error) {
	var quote models.Quote
	if err := s.db.First(&quote, quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}
	if !contains(quoteTransitions[quote.Statut], statut) {
		return nil, ErrInvalidTransition
	}
	old := quote.Statut
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&quote).Update("statut", statut).Error; err != nil {
			return err
		}
		s.audit(tx, userID, "Quote", quote.ID, "status_change", old, statut)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// ConvertQuote turns an accepted quote into an invoice carrying the same
// amounts, then marks the quote "facture" and records the link.
func (s *BillingService) ConvertQuote(quoteID uint, userID uint) (*models.Invoice, error) {
	var quote models.Quote
	if err := s.db.First(&quote, quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}
	if quote.Statut != models.QuoteStatusAccepte {
		return nil, ErrInvalidTransition
	}
	// émission et passage du devis en "facture" dans la même transaction:
	// un échec annule aussi la facture, pas de double facturation au retry
	var inv *models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = s.createInvoiceTx(tx, DocumentInput{
			ClientID:    quote.ClientID,
			Description: quote.Description,
			MontantHT:   quote.MontantHT,
			TauxTVA:     rateFrom(quote.MontantHT, quote.TVA),
		}, nil, nil, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(&quote).Updates(map[string]any{"statut": models.QuoteStatusFacture, "invoice_id": inv.ID}).Error; err != nil {
			return err
		}
		s.audit(tx, userID, "Quote", quote.ID, "status_change", models.QuoteStatusAccepte, models.QuoteStatusFacture)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.Preload("Client").First(inv, inv.ID).Error; err != nil {
		return nil, fmt.Errorf("reload invoice: %w", err)
	}
	return inv, nil
}

// rateFrom recovers the tax rate in percent from stored amounts.
func rateFrom(ht, tva float64) float64 {
	if ht == 0 {
		return 0
	}
	return tva / ht * 100
}

// CreditNoteInput is the emission request for an avoir.
type CreditNoteInput struct {
	InvoiceID uint
	MontantHT float64
	TauxTVA   float64
	Motif     string
	IsPartial bool
}

// CreateCreditNote emits a credit note against an invoice. The amount must be
// positive and, unless IsPartial is set, must not exceed the source invoice's
// pre-tax amount.
func (s *BillingService) CreateCreditNote(in CreditNoteInput, userID uint) (*models.CreditNote, error) {
	tva, ttc, err := ComputeAmounts(in.MontantHT, in.TauxTVA)
	if err != nil {
		return nil, err
	}
	var invoice models.Invoice
	if err := s.db.First(&invoice, in.InvoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	if !in.IsPartial && in.MontantHT > invoice.MontantHT {
		return nil, ErrAmountExceedsInvoice
	}
	now := time.Now()
	var note models.CreditNote
	err = s.db.Transaction(func(tx *gorm.DB) error {
		client, err := s.loadClient(tx, invoice.ClientID)
		if err != nil {
			return err
		}
		numero, err := NextNumber(tx, models.DocTypeCreditNote, now)
		if err != nil {
			return err
		}
		note = models.CreditNote{
			Numero:       numero,
			ClientID:     invoice.ClientID,
			InvoiceID:    invoice.ID,
			DateEmission: now,
			Motif:        in.Motif,
			MontantHT:    in.MontantHT,
			TVA:          tva,
			MontantTTC:   ttc,
			IsPartial:    in.IsPartial,
			Statut:       models.CreditNoteStatusEmis,
		}
		note.LienPDF = s.render(pdf.Document{
			Kind: "AVOIR", Numero: numero, DateEmission: now,
			ClientNom: client.Nom, ClientAdresse: clientAddress(client),
			Description: "Avoir sur facture " + invoice.Numero,
			MontantHT:   in.MontantHT, TVA: tva, MontantTTC: ttc, Motif: in.Motif,
		})
		if err := tx.Create(&note).Error; err != nil {
			return fmt.Errorf("create credit note: %w", err)
		}
		s.audit(tx, userID, "CreditNote", note.ID, "create", "", note.Numero)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.Preload("Client").Preload("Invoice").First(&note, note.ID).Error; err != nil {
		return nil, fmt.Errorf("reload credit note: %w", err)
	}
	return &note, nil
}

// MarkCreditNoteAccounted moves an avoir from emis to comptabilise.
func (s *BillingService) MarkCreditNoteAccounted(noteID uint, userID uint) (*models.CreditNote, error) {
	var note models.CreditNote
	if err := s.db.First(&note, noteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCreditNoteNotFound
		}
		return nil, err
	}
	if note.Statut != models.CreditNoteStatusEmis {
		return nil, ErrInvalidTransition
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&note).Update("statut", models.CreditNoteStatusComptabilise).Error; err != nil {
			return err
		}
		s.audit(tx, userID, "CreditNote", note.ID, "status_change", models.CreditNoteStatusEmis, models.CreditNoteStatusComptabilise)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// RecordPayment records a payment; once payments cover the TTC amount the
// invoice flips to paye.
func (s *BillingService) RecordPayment(invoiceID uint, montant float64, mode string, userID uint) (*models.Invoice, error) {
	if montant <= 0 {
		return nil, ErrInvalidBase
	}
	var invoice models.Invoice
	if err := s.db.First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p := models.Payment{InvoiceID: invoice.ID, Date: time.Now(), Montant: montant, Mode: mode}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		// somme en décimal: un SUM flottant peut rester sous le TTC alors
		// que les paiements le couvrent exactement
		var montants []float64
		if err := tx.Model(&models.Payment{}).Where("invoice_id = ?", invoice.ID).
			Pluck("montant", &montants).Error; err != nil {
			return err
		}
		paid := decimal.Zero
		for _, m := range montants {
			paid = paid.Add(decimal.NewFromFloat(m))
		}
		if paid.GreaterThanOrEqual(decimal.NewFromFloat(invoice.MontantTTC)) && invoice.Statut != models.InvoiceStatusPaye {
			if err := tx.Model(&invoice).Update("statut", models.InvoiceStatusPaye).Error; err != nil {
				return err
			}
			s.audit(tx, userID, "Invoice", invoice.ID, "status_change", models.InvoiceStatusEnAttente, models.InvoiceStatusPaye)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.First(&invoice, invoice.ID).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
