package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
	users "emirates-backoffice/internal/services/user/handler"
)

type UserService interface {
	Authenticate(ctx context.Context, username, password string) (*users.LoginResult, error)
	CreateUser(ctx context.Context, in users.CreateUserInput) (*models.User, error)
	SetActive(ctx context.Context, userID int64, active bool) error
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, name, phone string) (*models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
}

type UserHTTPHandler struct {
	users     UserService
	customers CustomerService
}

func NewUserHTTPHandler(userService UserService, customerService CustomerService) *UserHTTPHandler {
	return &UserHTTPHandler{
		users:     userService,
		customers: customerService,
	}
}

// Request structs
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname"`
	Phone     string `json:"phone" binding:"required"`
	Role      string `json:"role" binding:"required"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.Forbidden {
			resp := errorResponse("invalid username or password")
			resp.Error = "UNAUTHORIZED"
			c.JSON(http.StatusUnauthorized, resp)
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Login successful", result))
}

func (h *UserHTTPHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.CreateUser(ctx, users.CreateUserInput{
		Username:  req.Username,
		Password:  req.Password,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Phone:     req.Phone,
		Role:      req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("User created successfully", user))
}

func (h *UserHTTPHandler) SetActive(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.users.SetActive(ctx, id, *req.IsActive); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("User updated successfully", gin.H{
		"id":        id,
		"is_active": *req.IsActive,
	}))
}

// --- Customer Handlers ---

func (h *UserHTTPHandler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	customer, err := h.customers.CreateCustomer(ctx, req.Name, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Customer created successfully", customer))
}

func (h *UserHTTPHandler) GetCustomer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	customer, err := h.customers.GetCustomer(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Customer retrieved successfully", customer))
}
