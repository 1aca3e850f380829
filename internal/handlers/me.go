package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/glowcart/api/internal/platform/auth"
	"github.com/glowcart/api/internal/platform/httpx"
	"github.com/glowcart/api/internal/services"
)

var errNoEditableFields = errors.New("no editable fields provided")

// MeHandlers exposes the authenticated profile endpoints.
type MeHandlers struct {
	authn *auth.Authenticator
	users services.UserService
}

// NewMeHandlers constructs handlers enforcing session authentication before
// invoking the user service.
func NewMeHandlers(authn *auth.Authenticator, users services.UserService) *MeHandlers {
	return &MeHandlers{
		authn: authn,
		users: users,
	}
}

// Routes wires the /me endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession())
	}
	r.Get("/", h.getProfile)
	r.Patch("/", h.updateProfile)
}

func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "profile is unavailable", http.StatusServiceUnavailable))
		return
	}

	user, err := h.users.GetProfile(ctx, identity.UID)
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildUserPayload(user))
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

func (h *MeHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "profile is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req updateProfileRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if req.Name == nil && req.Phone == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, errNoEditableFields.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.UpdateProfileCommand{UserID: identity.UID}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		cmd.Name = &name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		cmd.Phone = &phone
	}

	user, err := h.users.UpdateProfile(ctx, cmd)
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildUserPayload(user))
}

func (h *MeHandlers) writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNotFound, "account not found", http.StatusNotFound))
	case errors.Is(err, services.ErrUserUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "profile is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to load profile", http.StatusInternalServerError))
	}
}
