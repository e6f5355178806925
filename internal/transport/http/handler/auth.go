package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-todo-api/internal/application/auth"
	"github.com/go-todo-api/internal/application/user"
	"github.com/go-todo-api/internal/domain"
	"github.com/go-todo-api/internal/pkg/validate"
	"github.com/go-todo-api/internal/transport/http/middleware"
)

// forgotPasswordMessage is returned for every forgot-password request,
// whether or not the address is registered.
const forgotPasswordMessage = "If the email exists, a reset link has been sent"

// AuthHandler handles sign-up and the credential verification/recovery flows.
type AuthHandler struct {
	svc     auth.Service
	userSvc user.Service
}

func NewAuthHandler(svc auth.Service, userSvc user.Service) *AuthHandler {
	return &AuthHandler{svc: svc, userSvc: userSvc}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req domain.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	u, err := h.userSvc.SignUp(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}

	env := AuthEnvelope{User: toSafeUser(u), Message: "verification email sent"}
	if err := h.svc.SendVerificationEmail(r.Context(), u.Email); err != nil {
		// The account exists either way. Report delivery trouble without
		// failing the sign-up.
		env.Message = ""
		env.Warning = "account created, but the verification email could not be sent"
	}
	writeJSON(w, http.StatusCreated, env)
}

func (h *AuthHandler) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.SendVerificationEmail(r.Context(), claims.Email); err != nil {
		if errors.Is(err, auth.ErrMailDelivery) {
			writeJSON(w, http.StatusOK, MessageEnvelope{Warning: "verification email could not be sent, try again later"})
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification email sent"})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req.Token); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email verified"})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	err := h.svc.ForgotPassword(r.Context(), req.Email)
	// Unknown addresses and delivery trouble both collapse into the generic
	// reply so the endpoint cannot be used to probe for accounts.
	if err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, auth.ErrMailDelivery) {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: forgotPasswordMessage})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}
