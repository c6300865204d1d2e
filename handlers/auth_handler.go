package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Dosada05/inmatch/middleware"
	"github.com/Dosada05/inmatch/services"
)

type AuthHandler struct {
	adminService services.AdminService
	jwtSecret    []byte
	now          func() time.Time
}

func NewAuthHandler(adminService services.AdminService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		adminService: adminService,
		jwtSecret:    []byte(jwtSecret),
		now:          time.Now,
	}
}

// Login godoc
// @Summary  Log in as an admin
// @Tags     admins
// @Accept   json
// @Produce  json
// @Param    credentials body services.LoginInput true "Credentials"
// @Success  200 {object} map[string]interface{}
// @Failure  401 {object} map[string]interface{}
// @Router   /api/admins/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Email == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	admin, err := h.adminService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, err := middleware.NewToken(h.jwtSecret, admin, h.now())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	response := jsonResponse{"token": token, "admin": admin}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
