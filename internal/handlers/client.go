package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/httpx"
	"github.com/transfret/backoffice/internal/models"
	"github.com/transfret/backoffice/internal/validation"
)

type ClientHandler struct {
	db *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{db: db}
}

// pagination reads limit/page query params with the list defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	dbq := h.db.Model(&models.Client{})
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(nom) LIKE ? OR lower(ville) LIKE ? OR siret LIKE ?", like, like, like)
	}
	var total int64
	dbq.Count(&total)
	var clients []models.Client
	if err := dbq.Order("nom").Limit(limit).Offset(offset).Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients, "total": total, "limit": limit, "offset": offset})
}

type clientReq struct {
	Nom           string `json:"nom"`
	NomCommercial string `json:"nom_commercial"`
	Contact       string `json:"contact"`
	Adresse       string `json:"adresse"`
	CodePostal    string `json:"code_postal"`
	Ville         string `json:"ville"`
	Pays          string `json:"pays"`
	Telephone     string `json:"telephone"`
	Email         string `json:"email"`
	SIRET         string `json:"siret"`
	TVAIntra      string `json:"tva_intra"`
	DelaiPaiement int    `json:"delai_paiement"`
}

func (req *clientReq) apply(c *models.Client) {
	c.Nom = strings.TrimSpace(req.Nom)
	c.NomCommercial = req.NomCommercial
	c.Contact = req.Contact
	c.Adresse = req.Adresse
	c.CodePostal = req.CodePostal
	c.Ville = req.Ville
	c.Pays = req.Pays
	c.Telephone = req.Telephone
	c.Email = req.Email
	c.SIRET = req.SIRET
	c.TVAIntra = req.TVAIntra
	if req.DelaiPaiement > 0 {
		c.DelaiPaiement = req.DelaiPaiement
	}
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientReq
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
	client := models.Client{DelaiPaiement: 30}
	req.apply(&client)
	if err := h.db.Create(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_client", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var client models.Client
	if err := h.db.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_client", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var client models.Client
	if err := h.db.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_client", nil)
		return
	}
	var req clientReq
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
	req.apply(&client)
	if err := h.db.Save(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_client", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	// un client facturé ne se supprime pas
	var count int64
	h.db.Model(&models.Invoice{}).Where("client_id = ?", id).Count(&count)
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "client_has_invoices", nil)
		return
	}
	res := h.db.Delete(&models.Client{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_client", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
