package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/auth"
	"github.com/transfret/backoffice/internal/httpx"
	"github.com/transfret/backoffice/internal/models"
	"github.com/transfret/backoffice/internal/services"
	"github.com/transfret/backoffice/internal/validation"
)

type CreditNoteHandler struct {
	DB  *gorm.DB
	Svc *services.BillingService
}

func NewCreditNoteHandler(db *gorm.DB, svc *services.BillingService) *CreditNoteHandler {
	return &CreditNoteHandler{DB: db, Svc: svc}
}

func (h *CreditNoteHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.CreditNote{})
	if st := r.URL.Query().Get("statut"); st != "" {
		dbq = dbq.Where("statut = ?", st)
	}
	if iid := r.URL.Query().Get("invoice_id"); iid != "" {
		dbq = dbq.Where("invoice_id = ?", iid)
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToUpper(q) + "%"
		dbq = dbq.Where("numero LIKE ?", like)
	}
	var total int64
	dbq.Count(&total)
	var notes []models.CreditNote
	if err := dbq.Preload("Client").Preload("Invoice").Order("id desc").Limit(limit).Offset(offset).Find(&notes).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_credit_notes", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": notes, "total": total, "limit": limit, "offset": offset})
}

func (h *CreditNoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req struct {
		InvoiceID uint    `json:"invoice_id"`
		MontantHT float64 `json:"montant_ht"`
		TVARate   float64 `json:"tva_rate"`
		Motif     string  `json:"motif"`
		IsPartial bool    `json:"is_partial"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.RequiredID("invoice_id", req.InvoiceID, v)
	validation.NonNegativeFloat("tva_rate", req.TVARate, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	note, err := h.Svc.CreateCreditNote(services.CreditNoteInput{
		InvoiceID: req.InvoiceID,
		MontantHT: req.MontantHT,
		TauxTVA:   req.TVARate,
		Motif:     req.Motif,
		IsPartial: req.IsPartial,
	}, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, note)
}

func (h *CreditNoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var note models.CreditNote
	if err := h.DB.Preload("Client").Preload("Invoice").First(&note, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
}

// Account: POST /credit-notes/{id}/account, marks the avoir comptabilise.
func (h *CreditNoteHandler) Account(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	note, err := h.Svc.MarkCreditNoteAccounted(id, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
}
