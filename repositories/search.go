//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_user_index.go -package=mocks
package repositories

import (
	"context"
	"strings"

	"parley/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type IUserIndex interface {
	Index(user domain.User) error
	Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error)
}

// UserIndex is the bluge-backed search index over user handles and display
// names. It is rebuilt from the user table at startup and updated on every
// registration and profile edit.
type UserIndex struct {
	writer *bluge.Writer
}

func NewUserIndex(writer *bluge.Writer) *UserIndex {
	return &UserIndex{writer: writer}
}

// Index upserts one user document. Handle and display name are stored
// lowercased as keyword fields so wildcard substring queries apply without
// tokenization surprises.
func (x *UserIndex) Index(user domain.User) error {
	doc := bluge.NewDocument(user.ID.String()).
		AddField(bluge.NewKeywordField("handle", strings.ToLower(user.Handle))).
		AddField(bluge.NewKeywordField("display_name", strings.ToLower(user.DisplayName)))
	return x.writer.Update(doc.ID(), doc)
}

// Search matches query as a case-insensitive substring of either field and
// returns up to limit user ids.
func (x *UserIndex) Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	reader, err := x.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	pattern := "*" + strings.ToLower(query) + "*"
	q := bluge.NewBooleanQuery().
		AddShould(bluge.NewWildcardQuery(pattern).SetField("handle")).
		AddShould(bluge.NewWildcardQuery(pattern).SetField("display_name")).
		SetMinShould(1)

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	match, err := iter.Next()
	for err == nil && match != nil {
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					ids = append(ids, id)
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		match, err = iter.Next()
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}
