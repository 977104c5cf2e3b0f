// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rameshwar8767/shopfusion/internal/metrics"
	"github.com/rameshwar8767/shopfusion/internal/store"
)

// ErrInvalidCredentials is returned for unknown emails and wrong
// passwords alike, so login responses never reveal which one failed.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned when registering an already-used email.
var ErrEmailTaken = errors.New("email already registered")

const minPasswordLength = 8

// Account is the public view of a retailer account.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Service implements registration and login on top of the store.
type Service struct {
	store *store.Store
	jwt   *JWTManager
}

// NewService creates the auth service.
func NewService(st *store.Store, jwt *JWTManager) *Service {
	return &Service{store: st, jwt: jwt}
}

// Register creates a retailer account and returns it with a session
// token. Passwords are hashed with bcrypt at the default cost.
func (s *Service) Register(ctx context.Context, email, password, name string) (Account, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		metrics.RecordAuthAttempt("register", false)
		return Account{}, "", fmt.Errorf("invalid email address")
	}
	if len(password) < minPasswordLength {
		metrics.RecordAuthAttempt("register", false)
		return Account{}, "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		metrics.RecordAuthAttempt("register", false)
		return Account{}, "", fmt.Errorf("hashing password: %w", err)
	}

	u := store.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		metrics.RecordAuthAttempt("register", false)
		if errors.Is(err, store.ErrDuplicateEmail) {
			return Account{}, "", ErrEmailTaken
		}
		return Account{}, "", fmt.Errorf("creating account: %w", err)
	}

	token, err := s.jwt.GenerateToken(u.ID, u.Email)
	if err != nil {
		metrics.RecordAuthAttempt("register", false)
		return Account{}, "", err
	}
	metrics.RecordAuthAttempt("register", true)
	return Account{ID: u.ID, Email: u.Email, Name: u.Name}, token, nil
}

// Login verifies credentials and returns the account with a fresh
// session token.
func (s *Service) Login(ctx context.Context, email, password string) (Account, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		metrics.RecordAuthAttempt("login", false)
		if errors.Is(err, store.ErrNotFound) {
			return Account{}, "", ErrInvalidCredentials
		}
		return Account{}, "", fmt.Errorf("looking up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		metrics.RecordAuthAttempt("login", false)
		return Account{}, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(u.ID, u.Email)
	if err != nil {
		metrics.RecordAuthAttempt("login", false)
		return Account{}, "", err
	}
	metrics.RecordAuthAttempt("login", true)
	return Account{ID: u.ID, Email: u.Email, Name: u.Name}, token, nil
}

// Validate checks a session token and returns its claims.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	return s.jwt.ValidateToken(tokenString)
}
