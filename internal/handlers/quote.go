package handlers

import (
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/auth"
	"github.com/transfret/backoffice/internal/httpx"
	"github.com/transfret/backoffice/internal/models"
	"github.com/transfret/backoffice/internal/services"
	"github.com/transfret/backoffice/internal/validation"
)

type QuoteHandler struct {
	DB  *gorm.DB
	Svc *services.BillingService
}

func NewQuoteHandler(db *gorm.DB, svc *services.BillingService) *QuoteHandler {
	return &QuoteHandler{DB: db, Svc: svc}
}

func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.Quote{})
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
	var quotes []models.Quote
	if err := dbq.Preload("Client").Order("id desc").Limit(limit).Offset(offset).Find(&quotes).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_quotes", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": quotes, "total": total, "limit": limit, "offset": offset})
}

func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req struct {
		ClientID     uint    `json:"client_id"`
		DateEmission string  `json:"date_emission"`
		Description  string  `json:"description"`
		MontantHT    float64 `json:"montant_ht"`
		TVARate      float64 `json:"tva_rate"`
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
	quote, err := h.Svc.CreateQuote(in, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var quote models.Quote
	if err := h.DB.Preload("Client").First(&quote, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// UpdateStatus: POST /quotes/{id}/status, accepte or refuse.
func (h *QuoteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	var req struct {
		Statut string `json:"statut"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	quote, err := h.Svc.UpdateQuoteStatus(id, req.Statut, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// Convert: POST /quotes/{id}/invoice, emits the invoice for an accepted quote.
func (h *QuoteHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	inv, err := h.Svc.ConvertQuote(id, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}
