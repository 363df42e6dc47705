package auth

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/pgmicro/inventory-backend/pkg/database"
	"github.com/pgmicro/inventory-backend/pkg/middleware"
)

type Handler struct {
	db           *gorm.DB
	googleConfig *oauth2.Config
}

func NewHandler(db *gorm.DB) *Handler {
	googleConfig := &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.send"},
		Endpoint:     google.Endpoint,
	}

	return &Handler{
		db:           db,
		googleConfig: googleConfig,
	}
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresIn   int64            `json:"expires_in"`
	Account     database.Account `json:"account"`
}

// Signup creates an employee with a linked account
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	var account database.Account
	err = h.db.Transaction(func(tx *gorm.DB) error {
		employee := database.Employee{
			Name:           req.Name,
			Role:           req.Role,
			EmployeeStatus: "Active",
		}
		if err := tx.Create(&employee).Error; err != nil {
			return err
		}

		account = database.Account{
			EmployeeID:    employee.ID,
			Username:      req.Username,
			PasswordHash:  string(hash),
			Email:         req.Email,
			AccountStatus: "Active",
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		if field, ok := database.UniqueViolation(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Already in use", "field": field})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	h.db.Preload("Employee").First(&account, account.ID)
	c.JSON(http.StatusCreated, gin.H{"data": account})
}

// Login exchanges credentials for a JWT carrying the role claim
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var account database.Account
	if err := h.db.Preload("Employee").Where("username = ?", req.Username).First(&account).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if account.AccountStatus != "Active" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not active"})
		return
	}

	expiresIn := int64(24 * 3600)
	claims := jwt.MapClaims{
		"account_id":  account.ID,
		"employee_id": account.EmployeeID,
		"role":        account.Employee.Role,
		"exp":         time.Now().Add(time.Duration(expiresIn) * time.Second).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign token"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken: signed,
		ExpiresIn:   expiresIn,
		Account:     account,
	})
}

// GetMe returns the authenticated account
func (h *Handler) GetMe(c *gin.Context) {
	accountID := c.GetUint("account_id")

	var account database.Account
	if err := h.db.Preload("Employee").First(&account, accountID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": account})
}

// GoogleLogin redirects to the Google consent screen to authorize the
// Gmail sender used for purchase order notifications.
func (h *Handler) GoogleLogin(c *gin.Context) {
	state := uuid.New().String()

	// Short-lived state cookie for CSRF protection
	c.SetCookie("oauth_state", state, 300, "/", "", false, true)

	url := h.googleConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback exchanges the authorization code and stores the
// refresh token for the mail sender.
func (h *Handler) GoogleCallback(c *gin.Context) {
	frontendURL := os.Getenv("FRONTEND_URL")

	if errParam := c.Query("error"); errParam != "" {
		c.Redirect(http.StatusTemporaryRedirect, frontendURL+"?auth_error="+errParam)
		return
	}

	state := c.Query("state")
	storedState, err := c.Cookie("oauth_state")
	if err != nil || state != storedState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state parameter"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusTemporaryRedirect, frontendURL+"?auth_error=no_code")
		return
	}

	token, err := h.googleConfig.Exchange(context.Background(), code)
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, frontendURL+"?auth_error=token_exchange_failed")
		return
	}

	if token.RefreshToken != "" {
		var accountID *uint
		if id := c.GetUint("account_id"); id != 0 {
			accountID = &id
		}
		cred := database.GoogleCredential{
			AccountID:    accountID,
			RefreshToken: token.RefreshToken,
			Scope:        "https://www.googleapis.com/auth/gmail.send",
		}
		if err := h.db.Create(&cred).Error; err != nil {
			c.Redirect(http.StatusTemporaryRedirect, frontendURL+"?auth_error=internal_error")
			return
		}
	}

	c.Redirect(http.StatusTemporaryRedirect, frontendURL+"?auth_success=true")
}
