package authkit

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sistemago/authkit/internal"
)

const minPasswordLength = 8

// Register creates an account and logs it in immediately. The first user ever
// registered becomes ADMIN and is auto-verified; everyone after that is USER,
// gets a verification token mailed out, and cannot log in again until they
// verify. The returned token pair is valid either way.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateRegisterInput(email, input.CPF, input.Password); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, err
	}

	hash, err := e.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	count, err := e.users.CountUsers(ctx)
	if err != nil {
		e.metricInc(MetricBackendError)
		return nil, ErrBackendUnavailable
	}

	now := time.Now()
	user := &UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		CPF:          input.CPF,
		PasswordHash: hash,
		Enabled:      true,
		CreatedAt:    now,
	}

	var verificationToken string
	if count == 0 {
		// Bootstrap admin. No verification round trip for the very first
		// account, otherwise nobody could ever log in.
		user.Role = RoleAdmin
		user.EmailVerified = true
	} else {
		user.Role = RoleUser
		verificationToken, err = internal.NewSecretToken()
		if err != nil {
			return nil, err
		}
		user.VerificationToken = verificationToken
		user.VerificationExpiresAt = now.Add(e.config.Verification.TokenTTL)
	}

	if err := e.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, ErrEmailAlreadyInUse), errors.Is(err, ErrCPFAlreadyInUse):
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
			return nil, err
		default:
			e.metricInc(MetricBackendError)
			return nil, ErrBackendUnavailable
		}
	}

	if verificationToken != "" {
		// Mail delivery must not undo a committed registration. The user can
		// always request a resend.
		if mailErr := e.mailer.SendVerification(ctx, user.Email, verificationToken); mailErr == nil {
			e.metricInc(MetricVerificationRequest)
			e.emitAudit(ctx, auditEventVerificationIssued, true, user.ID, "", nil, nil)
		}
	}

	pair, err := e.issueTokenPair(ctx, user, "")
	if err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, user.ID, "", err, func() map[string]string {
			return map[string]string{"reason": "token_issue_failed"}
		})
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, "", nil, func() map[string]string {
		return map[string]string{"role": string(user.Role)}
	})

	return &RegisterResult{
		UserID: user.ID,
		Role:   user.Role,
		Tokens: *pair,
	}, nil
}

func validateRegisterInput(email, cpf, password string) error {
	if email == "" {
		return ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidInput
	}
	if len(password) < minPasswordLength {
		return ErrInvalidInput
	}
	if !validCPF(cpf) {
		return ErrInvalidCPF
	}
	return nil
}
