package services

import (
	"fmt"
	"time"

	"parley/auth"
	"parley/domain"
	"parley/errors"
	"parley/repositories"

	"github.com/google/uuid"
)

type IAuthService interface {
	Register(handle, email, password, displayName string) (domain.User, string, error)
	Login(handle, password string) (domain.User, string, error)
	Profile(id uuid.UUID) (domain.User, error)
	UpdateProfile(id uuid.UUID, patch ProfilePatch) (domain.User, error)
	Logout(id uuid.UUID) error
}

// ProfilePatch applies only the fields present in the request: a nil pointer
// is a no-op, a pointer to the empty string overwrites. Identity, handle,
// email and credentials can never change through this path.
type ProfilePatch struct {
	DisplayName *string `json:"displayName"`
	Avatar      *string `json:"avatar"`
	Status      *string `json:"statusLine"`
	Bio         *string `json:"bio"`
}

type AuthService struct {
	users  repositories.IUserRepository
	index  repositories.IUserIndex
	tokens *auth.TokenIssuer
}

func NewAuthService(users repositories.IUserRepository, index repositories.IUserIndex, tokens *auth.TokenIssuer) IAuthService {
	return &AuthService{users: users, index: index, tokens: tokens}
}

func (s *AuthService) Register(handle, email, password, displayName string) (domain.User, string, error) {
	// Structural rules and password complexity come before any expensive
	// cryptographic work.
	valReq := auth.RegisterRequest{Handle: handle, Email: email, Password: password}
	if err := auth.ValidateRegister(valReq); err != nil {
		if errors.Is(err, errors.ErrInvalidPassword) {
			return domain.User{}, "", err
		}
		return domain.User{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	if displayName == "" {
		displayName = handle
	}
	user := domain.User{
		ID:           uuid.New(),
		Handle:       handle,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hashed,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(user); err != nil {
		return domain.User{}, "", err
	}
	if err := s.index.Index(user); err != nil {
		return domain.User{}, "", err
	}

	token, err := s.tokens.Generate(user.ID.String())
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user, token, nil
}

func (s *AuthService) Login(handle, password string) (domain.User, string, error) {
	user, err := s.users.GetByHandle(handle)
	if err != nil {
		// Same failure whether the handle exists or not, to prevent
		// user enumeration.
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID.String())
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user, token, nil
}

func (s *AuthService) Profile(id uuid.UUID) (domain.User, error) {
	return s.users.Get(id)
}

func (s *AuthService) UpdateProfile(id uuid.UUID, patch ProfilePatch) (domain.User, error) {
	user, err := s.users.Get(id)
	if err != nil {
		return domain.User{}, err
	}

	if patch.DisplayName != nil {
		user.DisplayName = *patch.DisplayName
	}
	if patch.Avatar != nil {
		user.Avatar = *patch.Avatar
	}
	if patch.Status != nil {
		user.Status = *patch.Status
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}

	if err := s.users.Update(user); err != nil {
		return domain.User{}, err
	}
	if err := s.index.Index(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) Logout(id uuid.UUID) error {
	_, err := s.users.SetPresence(id, false)
	return err
}
