package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/auth"
	"github.com/transfret/backoffice/internal/httpx"
	"github.com/transfret/backoffice/internal/models"
	"github.com/transfret/backoffice/internal/validation"
)

// SlipHandler serves both bordereau kinds; the kind comes from the route
// ("transport" or "freight").
type SlipHandler struct {
	db *gorm.DB
}

func NewSlipHandler(db *gorm.DB) *SlipHandler { return &SlipHandler{db: db} }

type slipReq struct {
	ClientID        uint    `json:"client_id"`
	FournisseurID   uint    `json:"fournisseur_id"`
	DateChargement  string  `json:"date_chargement"` // 2006-01-02
	DateLivraison   string  `json:"date_livraison"`
	VilleChargement string  `json:"ville_chargement"`
	VilleLivraison  string  `json:"ville_livraison"`
	Marchandise     string  `json:"marchandise"`
	PrixHT          float64 `json:"prix_ht"`        // transport
	PrixAchatHT     float64 `json:"prix_achat_ht"`  // freight
	PrixVenteHT     float64 `json:"prix_vente_ht"`  // freight
}

func (req *slipReq) validate(kind string) validation.Violations {
	v := make(validation.Violations)
	validation.RequiredID("client_id", req.ClientID, v)
	validation.Required("ville_chargement", req.VilleChargement, v)
	validation.Required("ville_livraison", req.VilleLivraison, v)
	if kind == "transport" {
		validation.PositiveFloat("prix_ht", req.PrixHT, v)
	} else {
		validation.PositiveFloat("prix_achat_ht", req.PrixAchatHT, v)
		validation.PositiveFloat("prix_vente_ht", req.PrixVenteHT, v)
	}
	return v
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (h *SlipHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if kind != "transport" && kind != "freight" {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	limit, offset := pagination(r)

	var model any
	if kind == "transport" {
		model = &models.TransportSlip{}
	} else {
		model = &models.FreightSlip{}
	}
	dbq := h.db.Model(model)
	if st := r.URL.Query().Get("status"); st != "" {
		dbq = dbq.Where("status = ?", st)
	}
	if cid := r.URL.Query().Get("client_id"); cid != "" {
		dbq = dbq.Where("client_id = ?", cid)
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(ville_chargement) LIKE ? OR lower(ville_livraison) LIKE ? OR lower(marchandise) LIKE ?", like, like, like)
	}
	if v := r.URL.Query().Get("unbilled"); v == "1" || v == "true" {
		dbq = dbq.Where("invoice_id IS NULL")
	}

	var total int64
	dbq.Count(&total)
	dbq = dbq.Preload("Client").Preload("Fournisseur").Order("id desc").Limit(limit).Offset(offset)
	if kind == "transport" {
		var slips []models.TransportSlip
		if err := dbq.Find(&slips).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_slips", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"items": slips, "total": total, "limit": limit, "offset": offset})
		return
	}
	var slips []models.FreightSlip
	if err := dbq.Find(&slips).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_slips", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": slips, "total": total, "limit": limit, "offset": offset})
}

func (h *SlipHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if kind != "transport" && kind != "freight" {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req slipReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(kind); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var clientCount int64
	h.db.Model(&models.Client{}).Where("id = ?", req.ClientID).Count(&clientCount)
	if clientCount == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "unknown_client", nil)
		return
	}

	if kind == "transport" {
		slip := models.TransportSlip{
			ClientID: req.ClientID, FournisseurID: req.FournisseurID,
			DateChargement: parseDate(req.DateChargement), DateLivraison: parseDate(req.DateLivraison),
			VilleChargement: req.VilleChargement, VilleLivraison: req.VilleLivraison,
			Marchandise: req.Marchandise, PrixHT: req.PrixHT,
			Status: models.SlipStatusWaiting,
		}
		if err := h.db.Create(&slip).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_slip", nil)
			return
		}
		httpx.JSON(w, http.StatusCreated, slip)
		return
	}
	slip := models.FreightSlip{
		ClientID: req.ClientID, FournisseurID: req.FournisseurID,
		DateChargement: parseDate(req.DateChargement), DateLivraison: parseDate(req.DateLivraison),
		VilleChargement: req.VilleChargement, VilleLivraison: req.VilleLivraison,
		Marchandise: req.Marchandise, PrixAchatHT: req.PrixAchatHT, PrixVenteHT: req.PrixVenteHT,
		Status: models.SlipStatusWaiting,
	}
	if err := h.db.Create(&slip).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_slip", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, slip)
}

func (h *SlipHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	switch kind {
	case "transport":
		var slip models.TransportSlip
		if err := h.db.Preload("Client").Preload("Fournisseur").First(&slip, id).Error; err != nil {
			notFoundOr500(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, slip)
	case "freight":
		var slip models.FreightSlip
		if err := h.db.Preload("Client").Preload("Fournisseur").First(&slip, id).Error; err != nil {
			notFoundOr500(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, slip)
	default:
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	}
}

func notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}

// UpdateStatus applies one transition of the slip state machine.
func (h *SlipHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	to := models.SlipStatus(req.Status)
	if !models.ValidSlipStatus(to) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"status": "invalid_value"})
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	var from models.SlipStatus
	var entity string
	var target any
	switch kind {
	case "transport":
		var slip models.TransportSlip
		if err := h.db.First(&slip, id).Error; err != nil {
			notFoundOr500(w, err)
			return
		}
		from, entity, target = slip.Status, "TransportSlip", &slip
	case "freight":
		var slip models.FreightSlip
		if err := h.db.First(&slip, id).Error; err != nil {
			notFoundOr500(w, err)
			return
		}
		from, entity, target = slip.Status, "FreightSlip", &slip
	default:
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !models.CanTransition(from, to) {
		httpx.JSONError(w, http.StatusConflict, "invalid_transition", map[string]string{"from": string(from), "to": string(to)})
		return
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(target).Update("status", to).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditLog{UserID: uid, EntityType: entity, EntityID: id, Action: "status_change", OldValue: string(from), NewValue: string(to)}).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_status", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(to)})
}
