package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const AuthMaxBodyBytes = 1 << 20

type SendCodeRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type VerifyCodeRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Name  string `json:"name,omitempty" validate:"omitempty,max=80"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type StaffLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by every successful sign in.
type AuthResponse struct {
	Customer  *Customer `json:"customer,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type HandlerDeps struct {
	OTP       *OTPService
	Customers CustomerRepo
	Tokens    *TokenIssuer
	Staff     *StaffAuthenticator
}

type Handler struct {
	otp       *OTPService
	customers CustomerRepo
	tokens    *TokenIssuer
	staff     *StaffAuthenticator
	validate  *validator.Validate
	logger    apt.Logger
	tlm       *telemetry.HTTP
}

func NewHandler(deps HandlerDeps, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		otp:       deps.OTP,
		customers: deps.Customers,
		tokens:    deps.Tokens,
		staff:     deps.Staff,
		validate:  validator.New(),
		logger:    logger,
		tlm:       telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth/otp", func(r chi.Router) {
		r.Post("/send", h.SendCode)
		r.Post("/verify", h.VerifyCode)
	})
	r.Post("/admin/login", h.StaffLogin)
}

func (h *Handler) SendCode(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "AuthHandler.SendCode")
	defer finish()

	log := h.log(r)

	var req SendCodeRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	phone, err := h.otp.SendCode(r.Context(), req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPhone):
			apt.RespondError(w, http.StatusBadRequest, "Invalid phone number")
		default:
			log.Error("cannot send verification code", "error", err)
			apt.RespondError(w, http.StatusBadGateway, "Could not send verification code")
		}
		return
	}

	apt.Respond(w, http.StatusAccepted, map[string]string{"phone": phone}, nil)
}

func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "AuthHandler.VerifyCode")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req VerifyCodeRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	phone, err := h.otp.VerifyCode(ctx, req.Phone, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPhone), errors.Is(err, ErrInvalidCode):
			apt.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrCodeMismatch), errors.Is(err, ErrCodeExpired):
			apt.RespondError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrTooManyAttempts):
			apt.RespondError(w, http.StatusTooManyRequests, err.Error())
		default:
			log.Error("cannot verify code", "error", err)
			apt.RespondError(w, http.StatusInternalServerError, "Could not verify code")
		}
		return
	}

	customer, err := h.upsertCustomer(r, phone, strings.TrimSpace(req.Name), strings.TrimSpace(req.Email))
	if err != nil {
		log.Error("cannot store customer", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not verify code")
		return
	}

	token, expires, err := h.tokens.Issue(customer.ID.String(), customer.Name, RoleCustomer)
	if err != nil {
		log.Error("cannot issue customer token", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not verify code")
		return
	}

	apt.RespondSuccess(w, AuthResponse{Customer: customer, Token: token, ExpiresAt: expires})
}

func (h *Handler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "AuthHandler.StaffLogin")
	defer finish()

	log := h.log(r)

	var req StaffLoginRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	if err := h.staff.Authenticate(req.Username, req.Password); err != nil {
		log.Info("staff login rejected", "username", req.Username)
		apt.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, expires, err := h.tokens.Issue(req.Username, req.Username, RoleStaff)
	if err != nil {
		log.Error("cannot issue staff token", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	apt.RespondSuccess(w, AuthResponse{Token: token, ExpiresAt: expires})
}

func (h *Handler) upsertCustomer(r *http.Request, phone, name, email string) (*Customer, error) {
	ctx := r.Context()

	customer, err := h.customers.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	if customer == nil {
		customer = NewCustomer(phone)
		customer.Merge(name, email)
		customer.BeforeCreate()
		if err := h.customers.Create(ctx, customer); err != nil {
			return nil, err
		}
		return customer, nil
	}

	if customer.Merge(name, email) {
		customer.BeforeUpdate()
		if err := h.customers.Save(ctx, customer); err != nil {
			return nil, err
		}
	}
	return customer, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log apt.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, AuthMaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		log.Debug("validation failed", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Validation failed")
		return false
	}

	return true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
