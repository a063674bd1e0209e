package service

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/entity"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type UserService struct {
	repo       *repository.UserRepository
	tokens     *TokenIssuer
	bcryptCost int
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo *repository.UserRepository, tokens *TokenIssuer, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, tokens: tokens, bcryptCost: bcryptCost}
}

// Register creates an ordinary account and returns a signed credential.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*entity.AuthResult, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, newError(ErrBadRequest, "name, email and password are required")
	}

	_, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, newError(ErrConflict, "email already registered")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		logger.Error().Err(err).Msg("Error looking up user by email")
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		logger.Error().Err(err).Msg("Error hashing password")
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, &entity.User{Name: name, Email: email, Password: string(hashed)})
	if err != nil {
		logger.Error().Err(err).Msg("Error creating user")
		return nil, err
	}
	metrics.UsersRegistered.Inc()

	return s.authResult(user)
}

// Login verifies the password for email. Unknown emails and wrong passwords
// are reported with different messages.
func (s *UserService) Login(ctx context.Context, email, password string) (*entity.AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, newError(ErrBadRequest, "email and password are required")
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.LoginFailures.WithLabelValues("unknown_email").Inc()
			return nil, newError(ErrUnauthorized, "user not found")
		}
		logger.Error().Err(err).Msg("Error looking up user by email")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		metrics.LoginFailures.WithLabelValues("wrong_password").Inc()
		return nil, newError(ErrUnauthorized, "incorrect password")
	}

	return s.authResult(user)
}

// Me returns the public profile of the credential holder.
func (s *UserService) Me(ctx context.Context, userID int64) (*entity.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "user not found")
		}
		logger.Error().Err(err).Msgf("Error getting user by ID %d", userID)
		return nil, err
	}
	return user, nil
}

// SeedAdmin creates an admin account when the users table is empty.
func (s *UserService) SeedAdmin(ctx context.Context, email, password string) error {
	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 || email == "" || password == "" {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return err
	}
	_, err = s.repo.CreateUser(ctx, &entity.User{Name: "Admin", Email: email, Password: string(hashed), IsAdmin: true})
	if err != nil {
		return err
	}
	logger.Info().Str("email", email).Msg("Seeded admin user")
	return nil
}

func (s *UserService) authResult(user *entity.User) (*entity.AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		logger.Error().Err(err).Msg("Error signing token")
		return nil, err
	}
	return &entity.AuthResult{Token: token, User: user}, nil
}
