package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/httpx"
	"github.com/transfret/backoffice/internal/models"
	"github.com/transfret/backoffice/internal/validation"
)

type FournisseurHandler struct {
	db *gorm.DB
}

func NewFournisseurHandler(db *gorm.DB) *FournisseurHandler {
	return &FournisseurHandler{db: db}
}

func (h *FournisseurHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	dbq := h.db.Model(&models.Fournisseur{})
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(nom) LIKE ? OR lower(ville) LIKE ?", like, like)
	}
	if tv := r.URL.Query().Get("type_vehicule"); tv != "" {
		dbq = dbq.Where("type_vehicule = ?", tv)
	}
	var total int64
	dbq.Count(&total)
	var fournisseurs []models.Fournisseur
	if err := dbq.Order("nom").Limit(limit).Offset(offset).Find(&fournisseurs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_fournisseurs", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": fournisseurs, "total": total, "limit": limit, "offset": offset})
}

type fournisseurReq struct {
	Nom          string `json:"nom"`
	Contact      string `json:"contact"`
	Adresse      string `json:"adresse"`
	CodePostal   string `json:"code_postal"`
	Ville        string `json:"ville"`
	Pays         string `json:"pays"`
	Telephone    string `json:"telephone"`
	Email        string `json:"email"`
	SIRET        string `json:"siret"`
	TVAIntra     string `json:"tva_intra"`
	TypeVehicule string `json:"type_vehicule"`
}

func (req *fournisseurReq) apply(f *models.Fournisseur) {
	f.Nom = strings.TrimSpace(req.Nom)
	f.Contact = req.Contact
	f.Adresse = req.Adresse
	f.CodePostal = req.CodePostal
	f.Ville = req.Ville
	f.Pays = req.Pays
	f.Telephone = req.Telephone
	f.Email = req.Email
	f.SIRET = req.SIRET
	f.TVAIntra = req.TVAIntra
	f.TypeVehicule = req.TypeVehicule
}

func (h *FournisseurHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req fournisseurReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("nom", req.Nom, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var f models.Fournisseur
	req.apply(&f)
	if err := h.db.Create(&f).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_fournisseur", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, f)
}

func (h *FournisseurHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var f models.Fournisseur
	if err := h.db.First(&f, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_fournisseur", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

func (h *FournisseurHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var f models.Fournisseur
	if err := h.db.First(&f, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_fournisseur", nil)
		return
	}
	var req fournisseurReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("nom", req.Nom, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	req.apply(&f)
	if err := h.db.Save(&f).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_fournisseur", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

func (h *FournisseurHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var count int64
	h.db.Model(&models.TransportSlip{}).Where("fournisseur_id = ?", id).Count(&count)
	if count == 0 {
		h.db.Model(&models.FreightSlip{}).Where("fournisseur_id = ?", id).Count(&count)
	}
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "fournisseur_has_slips", nil)
		return
	}
	res := h.db.Delete(&models.Fournisseur{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_fournisseur", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
