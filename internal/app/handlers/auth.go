package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/service"
	"github.com/linemk/gogol-pizza/internal/storage"
)

// CookieConfig controls the session cookie. Secure cookies use SameSite=None, others Lax.
type CookieConfig struct {
	Name   string
	Secure bool
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifySellerRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token,omitempty"`
}

type SellerVerificationResponse struct {
	SellerRequiresVerification bool   `json:"sellerRequiresVerification"`
	Message                    string `json:"msg"`
	Code                       string `json:"code,omitempty"`
}

type ForgotPasswordResponse struct {
	Message string `json:"msg"`
	Temp    string `json:"temp,omitempty"`
}

func RegisterHandler(log *slog.Logger, authService service.AuthService, cookie CookieConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		res, err := authService.Register(r.Context(), service.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
		})
		if err != nil {
			if errors.Is(err, storage.ErrEmailTaken) {
				writeError(w, http.StatusBadRequest, "user already exists", CodeEmailTaken)
				return
			}
			writeServiceError(w, logger, err)
			return
		}

		setSessionCookie(w, cookie, res.Token)
		writeJSON(w, http.StatusOK, AuthResponse{User: res.User, Token: res.Token})
	}
}

func LoginHandler(log *slog.Logger, authService service.AuthService, cookie CookieConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		res, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidCredentials):
				writeError(w, http.StatusBadRequest, "invalid credentials", CodeInvalidCredentials)
			case errors.Is(err, service.ErrMailDelivery):
				logger.Error("verification code not delivered", slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "failed to send verification code", CodeMailDelivery)
			default:
				writeServiceError(w, logger, err)
			}
			return
		}

		if res.SellerRequiresVerification {
			resp := SellerVerificationResponse{SellerRequiresVerification: true, Message: "verification code sent"}
			if res.DevCode != "" {
				resp.Message = "verification code (dev)"
				resp.Code = res.DevCode
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}

		setSessionCookie(w, cookie, res.Token)
		writeJSON(w, http.StatusOK, AuthResponse{User: res.User, Token: res.Token})
	}
}

func VerifySellerHandler(log *slog.Logger, authService service.AuthService, cookie CookieConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.VerifySellerHandler"
		logger := log.With(slog.String("op", op))

		var req VerifySellerRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		res, err := authService.VerifySeller(r.Context(), req.Email, req.Code)
		if err != nil {
			for _, e := range []error{service.ErrNoVerification, service.ErrCodeExpired, service.ErrInvalidCode} {
				if errors.Is(err, e) {
					writeError(w, http.StatusBadRequest, e.Error(), CodeVerificationFailed)
					return
				}
			}
			writeServiceError(w, logger, err)
			return
		}

		setSessionCookie(w, cookie, res.Token)
		writeJSON(w, http.StatusOK, AuthResponse{User: res.User, Token: res.Token})
	}
}

func ForgotPasswordHandler(log *slog.Logger, authService service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ForgotPasswordHandler"
		logger := log.With(slog.String("op", op))

		var req ForgotPasswordRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		temp, err := authService.ForgotPassword(r.Context(), req.Email)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrUserNotFound):
				writeError(w, http.StatusBadRequest, "no account found for that email", CodeUserNotFound)
			case errors.Is(err, service.ErrMailDelivery):
				writeError(w, http.StatusInternalServerError, "failed to send email", CodeMailDelivery)
			default:
				writeServiceError(w, logger, err)
			}
			return
		}

		if temp != "" {
			writeJSON(w, http.StatusOK, ForgotPasswordResponse{Message: "temporary password (dev)", Temp: temp})
			return
		}
		writeJSON(w, http.StatusOK, ForgotPasswordResponse{Message: "temporary password sent to your email"})
	}
}

func MeHandler(log *slog.Logger, authService service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MeHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		user, err := authService.Me(r.Context(), p.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized", CodeUnauthorized)
				return
			}
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{User: user})
	}
}

func LogoutHandler(cookie CookieConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := sessionCookie(cookie, "")
		c.MaxAge = -1
		http.SetCookie(w, c)
		writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
	}
}

// setSessionCookie issues a browser-session cookie (no Max-Age).
func setSessionCookie(w http.ResponseWriter, cfg CookieConfig, token string) {
	http.SetCookie(w, sessionCookie(cfg, token))
}

func sessionCookie(cfg CookieConfig, value string) *http.Cookie {
	c := &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.Secure {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}
