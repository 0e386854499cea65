package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/huddlehq/huddle/internal/models"
)

func TestPostCreateWithPoll(t *testing.T) {
	repo, mock := newMockRepo(t)
	posts := NewPostRepository(repo)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectQuery(`INSERT INTO "polls"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`INSERT INTO "poll_options"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO "poll_options"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectCommit()

	post := &models.Post{AuthorID: 5, Title: "Lunch spot", Content: "<p>Vote</p>"}
	poll := &models.Poll{Question: "Where to?", SingleChoice: true}
	err := posts.Create(context.Background(), post, nil, nil, poll, []string{"Tacos", "Ramen"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if poll.PostID != post.ID {
		t.Errorf("poll.PostID = %d, want %d", poll.PostID, post.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostCreateRollsBackOnPollFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	posts := NewPostRepository(repo)

	// A poll failure after the post insert must take the post down with
	// it; a client retry then starts clean instead of duplicating the
	// post.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectQuery(`INSERT INTO "polls"`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	post := &models.Post{AuthorID: 5, Title: "Lunch spot", Content: "<p>Vote</p>"}
	poll := &models.Poll{Question: "Where to?", SingleChoice: true}
	err := posts.Create(context.Background(), post, nil, nil, poll, []string{"Tacos", "Ramen"})
	if err == nil {
		t.Fatal("Create returned nil, want error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
