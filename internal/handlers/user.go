package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/middleware"
	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/pkg/response"
	"gorm.io/gorm"
)

// UserHandler manages player accounts. Accounts are provisioned by an admin;
// players authenticate with tokens issued by industryctl.
type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// Me returns the caller's account
// GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, middleware.GetUserID(c)).Error; err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, user)
}

// List searches accounts by username or character so owners can invite them
// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	search := strings.TrimSpace(c.Query("search"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var users []models.User
	var total int64

	query := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("is_active = ?", true)
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("username LIKE ? OR character_name LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}
	if err := query.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"items":     users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type CreateUserRequest struct {
	Username      string `json:"username" binding:"required"`
	CharacterName string `json:"character_name"`
	CharacterID   *int64 `json:"character_id"`
	Role          string `json:"role"`
}

// Create provisions an account
// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role := req.Role
	if role == "" {
		role = "user"
	}
	if role != middleware.RoleAdmin && role != "user" {
		response.BadRequest(c, "invalid role, must be 'admin' or 'user'")
		return
	}

	var existing int64
	h.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&existing)
	if existing > 0 {
		response.Error(c, response.NewConflict("username already taken").WithReason("username_taken"))
		return
	}

	user := models.User{
		Username:      strings.TrimSpace(req.Username),
		CharacterName: strings.TrimSpace(req.CharacterName),
		CharacterID:   req.CharacterID,
		Role:          role,
		IsActive:      true,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Response{Code: 0, Message: "created", Data: user})
}
