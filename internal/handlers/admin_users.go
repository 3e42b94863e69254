package handlers

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/auth"
	"github.com/transfret/backoffice/internal/httpx"
	"github.com/transfret/backoffice/internal/models"
	"github.com/transfret/backoffice/internal/validation"
)

// AdminUserHandler serves /admin/users; the router restricts it to the admin
// role.
type AdminUserHandler struct {
	DB *gorm.DB
}

func NewAdminUserHandler(db *gorm.DB) *AdminUserHandler { return &AdminUserHandler{DB: db} }

func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	var total int64
	h.DB.Model(&models.User{}).Count(&total)
	var users []models.User
	if err := h.DB.Preload("Role").Order("email").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_users", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": users, "total": total, "limit": limit, "offset": offset})
}

func (h *AdminUserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Nom      string `json:"nom"`
		Prenom   string `json:"prenom"`
		Role     string `json:"role"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	v := make(validation.Violations)
	validation.Required("email", req.Email, v)
	validation.Required("password", req.Password, v)
	validation.OneOf("role", req.Role, []string{models.RoleAdmin, models.RoleExploitation, models.RoleCompta}, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var role models.Role
	if err := h.DB.Where("name = ?", req.Role).First(&role).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "unknown_role", nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	user := models.User{Email: req.Email, Password: string(hash), Nom: req.Nom, Prenom: req.Prenom, RoleID: role.ID}
	if err := h.DB.Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "email_already_used", nil)
		return
	}
	user.Role = role
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *AdminUserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	var req struct {
		Password string `json:"password"`
		Nom      string `json:"nom"`
		Prenom   string `json:"prenom"`
		Role     string `json:"role"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	updates := map[string]any{}
	if req.Nom != "" {
		updates["nom"] = req.Nom
	}
	if req.Prenom != "" {
		updates["prenom"] = req.Prenom
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		updates["password"] = string(hash)
	}
	if req.Role != "" {
		var role models.Role
		if err := h.DB.Where("name = ?", req.Role).First(&role).Error; err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "unknown_role", nil)
			return
		}
		updates["role_id"] = role.ID
	}
	if len(updates) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "nothing_to_update", nil)
		return
	}
	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_user", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *AdminUserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if uid, ok := auth.UserIDFromContext(r.Context()); ok && uid == id {
		httpx.JSONError(w, http.StatusBadRequest, "cannot_delete_self", nil)
		return
	}
	res := h.DB.Delete(&models.User{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_user", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
