package handlers

import (
	"net/http"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/auth"
	"github.com/transfret/backoffice/internal/httpx"
	"github.com/transfret/backoffice/internal/models"
	"github.com/transfret/backoffice/internal/pdf"
	"github.com/transfret/backoffice/internal/services"
	"github.com/transfret/backoffice/internal/validation"
)

// MailSender is the slice of the mail package the handler needs.
type MailSender interface {
	SendDocument(to, subject, body, attachmentPath string) error
}

type InvoiceHandler struct {
	DB   *gorm.DB
	Svc  *services.BillingService
	Mail MailSender
}

func NewInvoiceHandler(db *gorm.DB, svc *services.BillingService, mail MailSender) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Svc: svc, Mail: mail}
}

// List: GET /invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.Invoice{})
	if st := r.URL.Query().Get("statut"); st != "" {
		dbq = dbq.Where("statut = ?", st)
	}
	if cid := r.URL.Query().Get("client_id"); cid != "" {
		dbq = dbq.Where("client_id = ?", cid)
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToUpper(q) + "%"
		dbq = dbq.Where("numero LIKE ?", like)
	}
	var total int64
	dbq.Count(&total)
	var invoices []models.Invoice
	if err := dbq.Preload("Client").Order("id desc").Limit(limit).Offset(offset).Find(&invoices).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invoices, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /invoices
// Four emission modes, one per request shape:
//   - {"transport_slip_id": N, "tva_rate": 20}
//   - {"freight_slip_id": N, "tva_rate": 20}
//   - {"client_id": N, "slips": [{"kind":"transport","id":1}, ...], "tva_rate": 20}   (facture groupée)
//   - {"client_id": N, "montant_ht": X, "tva_rate": 20, "description": "..."}         (facture libre)
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req struct {
		TransportSlipID uint               `json:"transport_slip_id"`
		FreightSlipID   uint               `json:"freight_slip_id"`
		ClientID        uint               `json:"client_id"`
		Slips           []services.SlipRef `json:"slips"`
		DateEmission    string             `json:"date_emission"`
		Description     string             `json:"description"`
		MontantHT       float64            `json:"montant_ht"`
		TVARate         float64            `json:"tva_rate"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.NonNegativeFloat("tva_rate", req.TVARate, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var inv *models.Invoice
	var err error
	switch {
	case req.TransportSlipID != 0:
		inv, err = h.Svc.InvoiceFromTransportSlip(req.TransportSlipID, req.TVARate, uid)
	case req.FreightSlipID != 0:
		inv, err = h.Svc.InvoiceFromFreightSlip(req.FreightSlipID, req.TVARate, uid)
	case len(req.Slips) > 0:
		inv, err = h.Svc.InvoiceFromSlips(req.ClientID, req.Slips, req.TVARate, uid)
	default:
		in := services.DocumentInput{
			ClientID:    req.ClientID,
			Description: req.Description,
			MontantHT:   req.MontantHT,
			TauxTVA:     req.TVARate,
		}
		if req.DateEmission != "" {
			if t, perr := time.Parse("2006-01-02", req.DateEmission); perr == nil {
				in.DateEmission = t
			}
		}
		inv, err = h.Svc.CreateInvoice(in, nil, nil, uid)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Get: GET /invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var inv models.Invoice
	if err := h.DB.Preload("Client").Preload("Slips").First(&inv, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Pay: POST /invoices/{id}/pay
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	var req struct {
		Montant float64 `json:"montant"`
		Mode    string  `json:"mode"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Mode == "" {
		req.Mode = "virement"
	}
	inv, err := h.Svc.RecordPayment(id, req.Montant, req.Mode, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// PDF: GET /invoices/{id}/pdf, renders on the fly, the stored artifact is
// only a convenience copy.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var inv models.Invoice
	if err := h.DB.Preload("Client").First(&inv, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	doc := pdf.Document{
		Kind: "FACTURE", Numero: inv.Numero, DateEmission: inv.DateEmission,
		ClientNom: inv.Client.Nom, Description: inv.Description,
		MontantHT: inv.MontantHT, TVA: inv.TVA, MontantTTC: inv.MontantTTC,
	}
	data, err := pdf.Build(doc)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+inv.Numero+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Send: POST /invoices/{id}/send, mails the invoice PDF to the client.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var inv models.Invoice
	if err := h.DB.Preload("Client").First(&inv, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	if inv.Client == nil || inv.Client.Email == "" {
		httpx.JSONError(w, http.StatusBadRequest, "client_has_no_email", nil)
		return
	}
	attachment := inv.LienPDF
	if attachment != "" {
		if _, err := os.Stat(attachment); err != nil {
			attachment = ""
		}
	}
	subject := "Facture " + inv.Numero
	body := "Bonjour,\n\nVeuillez trouver ci-joint la facture " + inv.Numero + ".\n\nCordialement"
	if err := h.Mail.SendDocument(inv.Client.Email, subject, body, attachment); err != nil {
		httpx.JSONError(w, http.StatusBadGateway, "mail_send_failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "sent", "to": inv.Client.Email})
}
