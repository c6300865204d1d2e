package handlers

import (
	"net/http"

	"github.com/Dosada05/inmatch/middleware"
	"github.com/Dosada05/inmatch/services"
)

type AdminHandler struct {
	adminService services.AdminService
}

func NewAdminHandler(adminService services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func actorFromRequest(r *http.Request) (services.Actor, bool) {
	id, err := middleware.GetAdminIDFromContext(r.Context())
	if err != nil {
		return services.Actor{}, false
	}
	role, err := middleware.GetAdminRoleFromContext(r.Context())
	if err != nil {
		return services.Actor{}, false
	}
	return services.Actor{ID: id, Role: role}, true
}

// Register godoc
// @Summary  Register a new admin (superadmin only)
// @Tags     admins
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    admin body services.RegisterAdminInput true "Admin"
// @Success  201 {object} map[string]interface{}
// @Failure  403 {object} map[string]interface{}
// @Router   /api/admins/register [post]
func (h *AdminHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		unauthorizedResponse(w, r, "invalid token")
		return
	}
	var input services.RegisterAdminInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	admin, err := h.adminService.Register(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	response := jsonResponse{"message": "Admin registered successfully", "admin": admin}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		unauthorizedResponse(w, r, "invalid token")
		return
	}
	admin, err := h.adminService.GetByID(r.Context(), actor.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, admin, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		unauthorizedResponse(w, r, "invalid token")
		return
	}
	admins, err := h.adminService.List(r.Context(), actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, admins, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Stats возвращает количество администраторов вместе со списком.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		unauthorizedResponse(w, r, "invalid token")
		return
	}
	admins, err := h.adminService.List(r.Context(), actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	response := jsonResponse{"totalAdmins": len(admins), "admins": admins}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		unauthorizedResponse(w, r, "invalid token")
		return
	}
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.adminService.Delete(r.Context(), actor, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "Admin removed successfully"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
