package operator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tagrush/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// NormalizeEmail lower-cases and trims an operator email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetOperatorAccount retrieves an operator account by email
func GetOperatorAccount(ctx context.Context, db *sqlx.DB, email string) (*models.OperatorAccount, error) {
	var acc models.OperatorAccount
	err := db.GetContext(ctx, &acc, db.Rebind(`
		SELECT email, display_name, password_hash, created_at, updated_at
		FROM operator_accounts WHERE email = ?
	`), NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// VerifyPassword checks if the provided password matches the stored hash
func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

// CreateOperatorAccount creates or updates an operator account (used for seeding)
func CreateOperatorAccount(ctx context.Context, db *sqlx.DB, email, displayName, plainPassword string) error {
	email = NormalizeEmail(email)
	if email == "" || plainPassword == "" {
		return fmt.Errorf("email and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, db.Rebind(`
		INSERT INTO operator_accounts (email, display_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			password_hash = EXCLUDED.password_hash,
			updated_at = EXCLUDED.updated_at
	`), email, displayName, string(hashed), now, now)

	return err
}

// ValidateCredentials validates an email + password combination
func ValidateCredentials(ctx context.Context, db *sqlx.DB, email, password string) (*models.OperatorAccount, error) {
	acc, err := GetOperatorAccount(ctx, db, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn comparable time so unknown emails are not distinguishable.
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			log.Printf("[OPERATOR] No operator account found for %s", NormalizeEmail(email))
			return nil, ErrInvalidCredentials
		}
		log.Printf("[OPERATOR] Database error: %v", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !VerifyPassword(acc.PasswordHash, password) {
		log.Printf("[OPERATOR] Password verification failed for %s", acc.Email)
		return nil, ErrInvalidCredentials
	}

	return acc, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)
