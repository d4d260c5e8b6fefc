package services

import (
	"context"
	"strings"

	"parley/domain"
	"parley/repositories"

	"github.com/google/uuid"
)

// minQueryLength keeps one-character probes from scanning the user base.
const minQueryLength = 2

const maxSearchResults = 10

type IUserService interface {
	Search(ctx context.Context, requesterID uuid.UUID, query string) ([]domain.User, error)
}

type UserService struct {
	users repositories.IUserRepository
	index repositories.IUserIndex
}

func NewUserService(users repositories.IUserRepository, index repositories.IUserIndex) IUserService {
	return &UserService{users: users, index: index}
}

// Search returns up to ten users whose handle or display name contains the
// query, never including the requester. Queries shorter than two characters
// yield an empty result regardless of matches.
func (s *UserService) Search(ctx context.Context, requesterID uuid.UUID, query string) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return []domain.User{}, nil
	}

	// One extra candidate so excluding the requester still fills the page.
	ids, err := s.index.Search(ctx, query, maxSearchResults+1)
	if err != nil {
		return nil, err
	}

	results := make([]domain.User, 0, maxSearchResults)
	for _, id := range ids {
		if id == requesterID {
			continue
		}
		user, err := s.users.Get(id)
		if err != nil {
			// The index can briefly run ahead of the table; skip ghosts.
			continue
		}
		results = append(results, user)
		if len(results) == maxSearchResults {
			break
		}
	}
	return results, nil
}
