package handlers

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reminddo/internal/logging"
	"reminddo/internal/services"
)

type RegisterHandler struct {
	registerService services.RegisterService
	logger          *zap.Logger
}

func NewRegisterHandler(registerService services.RegisterService, logger *zap.Logger) *RegisterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegisterHandler{registerService: registerService, logger: logger}
}

type RegistrationResponse struct {
	Message string              `json:"message"`
	User    UserProfileResponse `json:"user"`
}

func (h *RegisterHandler) Registration(c *gin.Context) {
	var req services.RegistrationRequest
	if !bindJSON(c, &req) {
		return
	}

	if fields := validateRegistration(req); len(fields) > 0 {
		validationFailed(c, fields)
		return
	}

	user, err := h.registerService.RegisterUser(c.Request.Context(), req)
	switch {
	case errors.Is(err, services.ErrDuplicateEmail):
		validationFailed(c, map[string]string{"email": "The email has already been taken."})
		return
	case errors.Is(err, services.ErrDuplicateUsername):
		validationFailed(c, map[string]string{"username": "The username has already been taken."})
		return
	case err != nil:
		serviceError(c, h.logger, "register", err)
		return
	}

	h.logger.Info("user registered", logging.UserID(user.ID))
	c.JSON(http.StatusCreated, RegistrationResponse{
		Message: "Welcome to Reminddo! Your account has been created successfully.",
		User: UserProfileResponse{
			ID:       user.ID.String(),
			Username: user.Username,
			Email:    user.Email,
			IsActive: user.IsActive,
		},
	})
}

// validateRegistration checks what the binding tags cannot express: the username alphabet and password mix.
func validateRegistration(req services.RegistrationRequest) map[string]string {
	fields := map[string]string{}

	for _, r := range strings.TrimSpace(req.Username) {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			fields["username"] = "The username may only contain letters, numbers, and underscores."
			break
		}
	}

	var hasLetter, hasDigit bool
	for _, r := range req.Password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		fields["password"] = "The password must contain at least one letter and one number."
	}
	return fields
}
