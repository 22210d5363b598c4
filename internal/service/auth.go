package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/linemk/gogol-pizza/internal/domain/models"
	security "github.com/linemk/gogol-pizza/internal/jwt-new"
	"github.com/linemk/gogol-pizza/internal/lib/clock"
	"github.com/linemk/gogol-pizza/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const tempPasswordAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	VerifySeller(ctx context.Context, email, code string) (*AuthResult, error)
	// ForgotPassword returns the temporary password only outside production.
	ForgotPassword(ctx context.Context, email string) (string, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// AuthResult is either a signed-in user with a token or a pending seller verification.
type AuthResult struct {
	User                       *models.User
	Token                      string
	SellerRequiresVerification bool
	// DevCode is set when the code could not be emailed outside production.
	DevCode string
}

type AuthOptions struct {
	JWTSecret      string
	TokenTTL       time.Duration
	SellerEmail    string
	SellerPassword string
	CodeTTL        time.Duration
	Production     bool
}

type sellerCode struct {
	code      string
	expiresAt time.Time
}

type authService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	mailer   Mailer
	clock    clock.Clock
	opts     AuthOptions
	codes    *ttlcache.Cache[string, sellerCode]
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, mailer Mailer, clk clock.Clock, opts AuthOptions) AuthService {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	// entries outlive the code itself so an expired code is reported as expired, not unknown
	codes := ttlcache.New[string, sellerCode](
		ttlcache.WithTTL[string, sellerCode](2*opts.CodeTTL),
		ttlcache.WithDisableTouchOnHit[string, sellerCode](),
	)
	return &authService{
		log:      log,
		userRepo: userRepo,
		mailer:   mailer,
		clock:    clk,
		opts:     opts,
		codes:    codes,
	}
}

func (a *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	const op = "service.AuthService.Register"
	logger := a.log.With(slog.String("op", op), slog.String("email", in.Email))

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := a.userRepo.CreateUser(ctx, &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Role:     models.RoleClient,
		PassHash: passHash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			logger.Info("email already registered")
		} else {
			logger.Error("failed to create user", slog.Any("error", err))
		}
		return nil, fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	return a.issue(user, logger)
}

// Login starts the emailed-code flow when the credentials are the configured seller ones.
func (a *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "service.AuthService.Login"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	if a.isSellerLogin(email, password) {
		return a.startSellerVerification(ctx, email, logger)
	}

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Info("unknown email")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return a.issue(user, logger)
}

func (a *authService) isSellerLogin(email, password string) bool {
	if a.opts.SellerEmail == "" || a.opts.SellerPassword == "" {
		return false
	}
	return email == a.opts.SellerEmail &&
		subtle.ConstantTimeCompare([]byte(password), []byte(a.opts.SellerPassword)) == 1
}

func (a *authService) startSellerVerification(ctx context.Context, email string, logger *slog.Logger) (*AuthResult, error) {
	const op = "service.AuthService.Login"

	code, err := randomDigits(6)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to generate code: %w", op, err)
	}
	a.codes.DeleteExpired()
	a.codes.Set(email, sellerCode{code: code, expiresAt: a.clock.Now().Add(a.opts.CodeTTL)}, ttlcache.DefaultTTL)

	html := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>. It expires in %d minutes.</p>",
		code, int(a.opts.CodeTTL.Minutes()))
	res := &AuthResult{SellerRequiresVerification: true}
	if err := a.mailer.Send(ctx, email, "Your seller login verification code", html); err != nil {
		if a.opts.Production {
			logger.Error("failed to send verification code", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w: %v", op, ErrMailDelivery, err)
		}
		logger.Warn("verification email not sent, returning code in response", slog.Any("error", err))
		res.DevCode = code
	}
	logger.Info("seller verification started")
	return res, nil
}

func (a *authService) VerifySeller(ctx context.Context, email, code string) (*AuthResult, error) {
	const op = "service.AuthService.VerifySeller"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	item := a.codes.Get(email)
	if item == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoVerification)
	}
	record := item.Value()
	if a.clock.Now().After(record.expiresAt) {
		a.codes.Delete(email)
		return nil, fmt.Errorf("%s: %w", op, ErrCodeExpired)
	}
	if subtle.ConstantTimeCompare([]byte(record.code), []byte(code)) != 1 {
		logger.Warn("wrong verification code")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCode)
	}

	password := a.opts.SellerPassword
	if password == "" {
		password, _ = randomString(16)
	}
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}
	seller, err := a.userRepo.UpsertSeller(ctx, &models.User{Name: "Seller", Email: email, PassHash: passHash})
	if err != nil {
		logger.Error("failed to upsert seller", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to upsert seller: %w", op, err)
	}
	a.codes.Delete(email)

	return a.issue(seller, logger)
}

func (a *authService) ForgotPassword(ctx context.Context, email string) (string, error) {
	const op = "service.AuthService.ForgotPassword"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	temp, err := randomString(8)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate password: %w", op, err)
	}
	passHash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: failed to hash password: %w", op, err)
	}
	if err := a.userRepo.UpdatePassword(ctx, user.ID, passHash); err != nil {
		logger.Error("failed to update password", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to update password: %w", op, err)
	}

	html := fmt.Sprintf("<p>Hello %s,</p><p>A temporary password was requested for your account. "+
		"Use it to sign in, then change it in your account settings:</p><p><strong>%s</strong></p>",
		user.Name, temp)
	sendErr := a.mailer.Send(ctx, email, "Your temporary password", html)

	if a.opts.Production {
		if sendErr != nil {
			logger.Error("failed to send temporary password", slog.Any("error", sendErr))
			return "", fmt.Errorf("%s: %w: %v", op, ErrMailDelivery, sendErr)
		}
		return "", nil
	}
	if sendErr != nil {
		logger.Warn("temporary password not emailed", slog.Any("error", sendErr))
	}
	return temp, nil
}

func (a *authService) Me(ctx context.Context, userID int64) (*models.User, error) {
	const op = "service.AuthService.Me"

	user, err := a.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (a *authService) issue(user *models.User, logger *slog.Logger) (*AuthResult, error) {
	token, err := security.NewToken(user, a.opts.JWTSecret, a.opts.TokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	logger.Info("user signed in", slog.Int64("userID", user.ID), slog.String("role", string(user.Role)))
	return &AuthResult{User: user, Token: token}, nil
}

func randomDigits(n int) (string, error) {
	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(lo, big.NewInt(10)), lo)
	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return v.Add(v, lo).String(), nil
}

func randomString(n int) (string, error) {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(tempPasswordAlphabet)))
	for i := range out {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordAlphabet[v.Int64()]
	}
	return string(out), nil
}
