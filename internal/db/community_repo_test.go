package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/internal/models"
)

func TestCommunityCreateDuplicateSlug(t *testing.T) {
	repo, mock := newMockRepo(t)
	communities := NewCommunityRepository(repo)

	// Two concurrent creates can both pass the slug pre-check; the
	// unique index rejects the loser and the error must surface as
	// gorm.ErrDuplicatedKey, not an opaque failure.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "communities"`).
		WillReturnError(&pgconn.PgError{
			Code:    "23505",
			Message: `duplicate key value violates unique constraint "communities_slug_key"`,
		})
	mock.ExpectRollback()

	community := &models.Community{
		Slug:      "general",
		Name:      "General",
		Type:      models.CommunityTypePublic,
		CreatorID: 1,
	}
	err := communities.CreateWithOwner(context.Background(), community)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("CreateWithOwner error = %v, want gorm.ErrDuplicatedKey", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
