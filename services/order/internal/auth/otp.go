package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/appetiteclub/apt"
)

const (
	CodeLength         = 6
	DefaultCodeTTL     = 5 * time.Minute
	DefaultMaxAttempts = 5
)

var (
	ErrInvalidCode     = errors.New("code must be 6 digits")
	ErrCodeExpired     = errors.New("code expired or not requested")
	ErrCodeMismatch    = errors.New("code does not match")
	ErrTooManyAttempts = errors.New("too many attempts")
)

// Challenge is the pending verification for one phone number.
type Challenge struct {
	CodeHash  string    `json:"code_hash"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CodeStore keeps challenges until they expire. Get returns nil when absent.
type CodeStore interface {
	Put(ctx context.Context, phone string, ch Challenge, ttl time.Duration) error
	Get(ctx context.Context, phone string) (*Challenge, error)
	Delete(ctx context.Context, phone string) error
}

type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

type OTPConfig struct {
	Region      string
	TTL         time.Duration
	MaxAttempts int
}

type OTPService struct {
	store    CodeStore
	sender   SMSSender
	logger   apt.Logger
	cfg      OTPConfig
	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(store CodeStore, sender SMSSender, cfg OTPConfig, logger apt.Logger) *OTPService {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCodeTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	return &OTPService{
		store:    store,
		sender:   sender,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		generate: generateCode,
	}
}

// SendCode issues a fresh code for the phone, replacing any pending one.
// It returns the normalized phone number.
func (s *OTPService) SendCode(ctx context.Context, rawPhone string) (string, error) {
	phone, err := NormalizePhone(rawPhone, s.cfg.Region)
	if err != nil {
		return "", err
	}

	code, err := s.generate()
	if err != nil {
		return "", fmt.Errorf("cannot generate code: %w", err)
	}

	ch := Challenge{
		CodeHash:  hashCode(phone, code),
		ExpiresAt: s.now().Add(s.cfg.TTL),
	}
	if err := s.store.Put(ctx, phone, ch, s.cfg.TTL); err != nil {
		return "", fmt.Errorf("cannot store code: %w", err)
	}

	msg := fmt.Sprintf("Your Momo Magic verification code is %s. It expires in %d minutes.", code, int(s.cfg.TTL.Minutes()))
	if err := s.sender.Send(ctx, phone, msg); err != nil {
		_ = s.store.Delete(ctx, phone)
		return "", fmt.Errorf("cannot deliver code: %w", err)
	}

	s.log().Info("verification code sent", "phone", maskPhone(phone))
	return phone, nil
}

// VerifyCode consumes the pending challenge when the code matches.
func (s *OTPService) VerifyCode(ctx context.Context, rawPhone, code string) (string, error) {
	phone, err := NormalizePhone(rawPhone, s.cfg.Region)
	if err != nil {
		return "", err
	}
	if !validCodeFormat(code) {
		return "", ErrInvalidCode
	}

	ch, err := s.store.Get(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("cannot load code: %w", err)
	}
	if ch == nil || !s.now().Before(ch.ExpiresAt) {
		return "", ErrCodeExpired
	}
	if ch.Attempts >= s.cfg.MaxAttempts {
		_ = s.store.Delete(ctx, phone)
		return "", ErrTooManyAttempts
	}

	want := []byte(ch.CodeHash)
	got := []byte(hashCode(phone, code))
	if subtle.ConstantTimeCompare(want, got) != 1 {
		ch.Attempts++
		remaining := ch.ExpiresAt.Sub(s.now())
		if ch.Attempts >= s.cfg.MaxAttempts {
			_ = s.store.Delete(ctx, phone)
		} else if err := s.store.Put(ctx, phone, *ch, remaining); err != nil {
			s.log().Error("cannot record failed attempt", "error", err)
		}
		return "", ErrCodeMismatch
	}

	if err := s.store.Delete(ctx, phone); err != nil {
		s.log().Error("cannot consume code", "error", err)
	}
	return phone, nil
}

func (s *OTPService) log() apt.Logger {
	return s.logger.With("component", "OTPService")
}

func generateCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashCode(phone, code string) string {
	sum := sha256.Sum256([]byte(phone + ":" + code))
	return hex.EncodeToString(sum[:])
}

func validCodeFormat(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
