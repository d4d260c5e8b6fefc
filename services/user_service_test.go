package services

import (
	"context"
	"testing"

	"parley/domain"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestUserService_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	f.register(t, "malice")
	f.register(t, "bob")

	t.Run("should return an empty set for a short query", func(t *testing.T) {
		req := require.New(t)
		for _, q := range []string{"", "a", " a "} {
			users, err := f.userSvc.Search(ctx, alice.ID, q)
			req.NoError(err)
			req.Empty(users)
		}
	})

	t.Run("should match substrings of handle and display name", func(t *testing.T) {
		req := require.New(t)
		users, err := f.userSvc.Search(ctx, alice.ID, "lic")
		req.NoError(err)
		handles := lo.Map(users, func(u domain.User, _ int) string { return u.Handle })
		req.Equal([]string{"malice"}, handles, "the requester is excluded even when matching")
	})

	t.Run("should never include the requester", func(t *testing.T) {
		req := require.New(t)
		users, err := f.userSvc.Search(ctx, alice.ID, "alice")
		req.NoError(err)
		for _, user := range users {
			req.NotEqual(alice.ID, user.ID)
		}
	})

	t.Run("should cap results at ten", func(t *testing.T) {
		req := require.New(t)
		for i := 0; i < 12; i++ {
			f.register(t, "crowd"+string(rune('a'+i)))
		}
		users, err := f.userSvc.Search(ctx, alice.ID, "crowd")
		req.NoError(err)
		req.Len(users, 10)
	})
}
