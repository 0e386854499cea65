package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/huddlehq/huddle/internal/models"
)

// newMockRepo builds a repository over a sqlmock connection so tests can
// assert transaction boundaries without a live database.
func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Discard,
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return NewRepository(gdb), mock
}

func TestOrganizationCreateWithOwner(t *testing.T) {
	repo, mock := newMockRepo(t)
	orgs := NewOrganizationRepository(repo)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "organizations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	org := &models.Organization{Name: "Acme"}
	if err := orgs.CreateWithOwner(context.Background(), org, 42); err != nil {
		t.Fatalf("CreateWithOwner: %v", err)
	}
	if org.ID != 7 {
		t.Errorf("org.ID = %d, want 7", org.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrganizationCreateWithOwnerRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	orgs := NewOrganizationRepository(repo)

	// The org insert succeeds but the creator's membership update does
	// not: the whole transaction must roll back, leaving no adminless
	// org behind.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "organizations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	org := &models.Organization{Name: "Acme"}
	if err := orgs.CreateWithOwner(context.Background(), org, 42); err == nil {
		t.Fatal("CreateWithOwner returned nil, want error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
