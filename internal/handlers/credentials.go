package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/woopsyyy/portal-credsvc/internal/services"
	"github.com/woopsyyy/portal-credsvc/pkg/response"
)

// CredentialHandler exposes the administrative set-password operation.
type CredentialHandler struct {
	service *services.CredentialService
}

// NewCredentialHandler constructs a CredentialHandler.
func NewCredentialHandler(service *services.CredentialService) *CredentialHandler {
	return &CredentialHandler{service: service}
}

type setPasswordRequest struct {
	UserID   int64  `json:"user_id" validate:"required,gt=0"`
	Password string `json:"password" validate:"required,min=8"`
}

type setPasswordResponse struct {
	Success         bool   `json:"success"`
	AuthUID         string `json:"auth_uid"`
	AuthEmail       string `json:"auth_email"`
	CreatedAuthUser bool   `json:"created_auth_user"`
}

// SetPassword handles POST /api/admin/credentials. Authorization has already
// been enforced by the AdminAuth middleware.
func (h *CredentialHandler) SetPassword(c *gin.Context) {
	var body setPasswordRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.service.SetPassword(requestContext(c), services.SetPasswordInput{
		UserID:   uint64(body.UserID),
		Password: body.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, setPasswordResponse{
		Success:         true,
		AuthUID:         result.IdentityRef,
		AuthEmail:       result.LoginID,
		CreatedAuthUser: result.CreatedAccount,
	})
}
