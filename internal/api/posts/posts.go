// Package posts implements the posts.* JSON-RPC methods: post CRUD,
// comments, bookmarks and polls.
package posts

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/api/actor"
	"github.com/huddlehq/huddle/internal/api/apierr"
	"github.com/huddlehq/huddle/internal/api/params"
	"github.com/huddlehq/huddle/internal/content"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/notify"
	"github.com/huddlehq/huddle/internal/permissions"
	"github.com/huddlehq/huddle/internal/sanitize"
	"github.com/huddlehq/huddle/pkg/logging"
)

// API implements the posts method group.
type API struct {
	posts       *db.PostRepository
	comments    *db.CommentRepository
	saved       *db.SavedPostRepository
	polls       *db.PollRepository
	communities *db.CommunityRepository
	members     *db.MemberRepository
	notifier    *notify.Notifier
	logger      *zap.Logger
}

// NewAPI creates the posts API
func NewAPI(repo *db.Repository, notifier *notify.Notifier) *API {
	return &API{
		posts:       db.NewPostRepository(repo),
		comments:    db.NewCommentRepository(repo),
		saved:       db.NewSavedPostRepository(repo),
		polls:       db.NewPollRepository(repo),
		communities: db.NewCommunityRepository(repo),
		members:     db.NewMemberRepository(repo),
		notifier:    notifier,
		logger:      logging.WithComponent("posts_api"),
	}
}

// CommentView is the comment shape returned to clients.
type CommentView struct {
	ID        int64              `json:"id"`
	PostID    int64              `json:"postId"`
	Author    content.AuthorView `json:"author"`
	Content   string             `json:"content"`
	CreatedAt int64              `json:"createdAt"`
}

// PollView is the poll shape returned to clients, vote counts included.
type PollView struct {
	ID           int64            `json:"id"`
	PostID       int64            `json:"postId"`
	Question     string           `json:"question"`
	SingleChoice bool             `json:"singleChoice"`
	Options      []PollOptionView `json:"options"`
}

// PollOptionView is one poll choice with its tally.
type PollOptionView struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Votes int64  `json:"votes"`
}

func commentView(comment *models.Comment) *CommentView {
	v := &CommentView{
		ID:        comment.ID,
		PostID:    comment.PostID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt.Unix(),
	}
	if comment.Author != nil {
		v.Author = content.AuthorView{
			ID:        comment.Author.ID,
			Name:      comment.Author.Name,
			AvatarURL: comment.Author.AvatarURL,
		}
	}
	return v
}

func pollView(poll *models.Poll, counts map[int64]int64) *PollView {
	v := &PollView{
		ID:           poll.ID,
		PostID:       poll.PostID,
		Question:     poll.Question,
		SingleChoice: poll.SingleChoice,
		Options:      make([]PollOptionView, len(poll.Options)),
	}
	for i, opt := range poll.Options {
		v.Options[i] = PollOptionView{ID: opt.ID, Label: opt.Label, Votes: counts[opt.ID]}
	}
	return v
}

// loadLive fetches a post, 404 for absent or soft-deleted ones.
func (a *API) loadLive(c *gin.Context, id int64) (*models.Post, error) {
	post, err := a.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		a.logger.Error("Failed to load post", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	if post == nil || post.IsDeleted {
		return nil, apierr.NewNotFoundError("post %d not found", id)
	}
	return post, nil
}

// check evaluates an action against the post's owning scope: its
// community when it has one, the owning org otherwise.
func (a *API) check(c *gin.Context, user *models.User, post *models.Post, action permissions.Action) error {
	ctx := c.Request.Context()

	var res permissions.Resource
	var community *models.Community
	if post.CommunityID.Valid {
		var err error
		community, err = a.communities.GetByID(ctx, post.CommunityID.Int64)
		if err != nil {
			a.logger.Error("Failed to load post community", zap.Error(err))
			return apierr.NewInternalError()
		}
		if community == nil {
			return apierr.NewNotFoundError("post %d not found", post.ID)
		}
		res = actor.CommunityResource(user, community, post.AuthorID)
	} else {
		res = actor.OrgResource(user, post.OrgID.Int64, post.AuthorID)
	}

	sub, err := actor.Subject(ctx, a.members, user, community)
	if err != nil {
		a.logger.Error("Failed to resolve membership", zap.Error(err))
		return apierr.NewInternalError()
	}
	if !permissions.Allowed(sub, action, res) {
		return apierr.NewForbiddenError("permission denied")
	}
	return nil
}

type getParams struct {
	PostID int64 `json:"postId" validate:"required,gt=0"`
}

// Get returns a single post with its live comment count.
func (a *API) Get(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p getParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	post, err := a.loadLive(c, p.PostID)
	if err != nil {
		return nil, err
	}
	user := actor.Viewer(c)
	if err := a.check(c, user, post, permissions.ActionViewPost); err != nil {
		return nil, apierr.NewNotFoundError("post %d not found", p.PostID)
	}

	counts, err := a.comments.CountLiveByPostIDs(c.Request.Context(), []int64{post.ID})
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	return content.NewPostView(post, counts[post.ID]), nil
}

type pollParams struct {
	Question     string   `json:"question" validate:"required,max=500"`
	SingleChoice *bool    `json:"singleChoice"`
	Options      []string `json:"options" validate:"required,min=2,max=10,dive,required,max=300"`
}

type createParams struct {
	CommunityID   *int64      `json:"communityId" validate:"omitempty,gt=0"`
	Title         string      `json:"title" validate:"required,max=300"`
	Content       string      `json:"content" validate:"required"`
	Tags          []string    `json:"tags" validate:"omitempty,max=10,dive,required,max=64"`
	AttachmentIDs []int64     `json:"attachmentIds" validate:"omitempty,max=20,dive,gt=0"`
	Poll          *pollParams `json:"poll"`
}

// Create makes a post in a community or org-wide when communityId is
// absent. Content is sanitized before storage; confirmed attachments
// owned by the author, the tag set and an optional poll are all written
// in the same transaction as the post. Community members get a push
// notification.
func (a *API) Create(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p createParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	post := &models.Post{
		AuthorID: user.ID,
		Title:    p.Title,
		Content:  sanitize.HTML(p.Content),
	}

	var community *models.Community
	if p.CommunityID != nil {
		community, err = a.communities.GetByID(ctx, *p.CommunityID)
		if err != nil {
			return nil, apierr.NewInternalError()
		}
		if community == nil {
			return nil, apierr.NewNotFoundError("community %d not found", *p.CommunityID)
		}
		post.CommunityID = sql.NullInt64{Int64: community.ID, Valid: true}
		post.OrgID = community.OrgID
	} else {
		if !user.OrgID.Valid {
			return nil, apierr.NewValidationError("communityId is required for users without an organization")
		}
		post.OrgID = user.OrgID
	}

	sub, err := actor.Subject(ctx, a.members, user, community)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	var res permissions.Resource
	if community != nil {
		res = actor.CommunityResource(user, community, 0)
	} else {
		res = actor.OrgResource(user, post.OrgID.Int64, 0)
	}
	if !permissions.Allowed(sub, permissions.ActionCreatePost, res) {
		return nil, apierr.NewForbiddenError("not allowed to post here")
	}

	var poll *models.Poll
	var pollOptions []string
	if p.Poll != nil {
		poll = &models.Poll{Question: p.Poll.Question, SingleChoice: true}
		if p.Poll.SingleChoice != nil {
			poll.SingleChoice = *p.Poll.SingleChoice
		}
		pollOptions = p.Poll.Options
	}
	if err := a.posts.Create(ctx, post, p.AttachmentIDs, p.Tags, poll, pollOptions); err != nil {
		a.logger.Error("Failed to create post", zap.Error(err))
		return nil, apierr.NewInternalError()
	}

	if community != nil {
		a.notifyCommunity(ctx, community, user.ID, notify.Message{
			Type:        notify.TypeNewPost,
			Title:       community.Name,
			Body:        post.Title,
			PostID:      post.ID,
			CommunityID: community.ID,
		})
	}

	created, err := a.posts.GetByID(ctx, post.ID)
	if err != nil || created == nil {
		return nil, apierr.NewInternalError()
	}
	return content.NewPostView(created, 0), nil
}

// notifyCommunity pushes to every active member except the acting user.
func (a *API) notifyCommunity(ctx context.Context, community *models.Community, actorID int64, msg notify.Message) {
	ids, err := a.members.ListUserIDs(ctx, community.ID)
	if err != nil {
		a.logger.Warn("Failed to list members for notification", zap.Error(err))
		return
	}
	targets := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != actorID {
			targets = append(targets, id)
		}
	}
	a.notifier.Notify(targets, msg)
}

type updateParams struct {
	PostID  int64   `json:"postId" validate:"required,gt=0"`
	Title   *string `json:"title" validate:"omitempty,max=300"`
	Content *string `json:"content"`
}

// Update edits a post's title or content. Author or a moderation role in
// the owning scope.
func (a *API) Update(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p updateParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	post, err := a.loadLive(c, p.PostID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, post, permissions.ActionEditPost); err != nil {
		return nil, err
	}

	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Content != nil {
		post.Content = sanitize.HTML(*p.Content)
	}
	if err := a.posts.Update(c.Request.Context(), post); err != nil {
		a.logger.Error("Failed to update post", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return content.NewPostView(post, 0), nil
}

// Delete soft-deletes a post. Bookmarks and comments keep their rows;
// the post simply stops appearing in feeds and saved pages.
func (a *API) Delete(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p getParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	post, err := a.loadLive(c, p.PostID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, post, permissions.ActionDeletePost); err != nil {
		return nil, err
	}

	if err := a.posts.SoftDelete(c.Request.Context(), p.PostID); err != nil {
		a.logger.Error("Failed to delete post", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return gin.H{"deleted": true}, nil
}

// Save bookmarks a post for the caller. Saving twice is a no-op.
func (a *API) Save(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p getParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	post, err := a.loadLive(c, p.PostID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, post, permissions.ActionViewPost); err != nil {
		return nil, err
	}

	if err := a.saved.Save(c.Request.Context(), &models.SavedPost{UserID: user.ID, PostID: p.PostID}); err != nil {
		a.logger.Error("Failed to save post", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return gin.H{"saved": true}, nil
}

// Unsave removes a bookmark. Unsaving an absent bookmark is a no-op.
func (a *API) Unsave(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p getParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	if err := a.saved.Unsave(c.Request.Context(), user.ID, p.PostID); err != nil {
		a.logger.Error("Failed to unsave post", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return gin.H{"saved": false}, nil
}

type commentsListParams struct {
	PostID int64 `json:"postId" validate:"required,gt=0"`
	Limit  int   `json:"limit" validate:"omitempty,gt=0,lte=100"`
	Offset int   `json:"offset" validate:"omitempty,gte=0"`
}

// ListComments returns a post's live comments, oldest first.
func (a *API) ListComments(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p commentsListParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	post, err := a.loadLive(c, p.PostID)
	if err != nil {
		return nil, err
	}
	user := actor.Viewer(c)
	if err := a.check(c, user, post, permissions.ActionViewPost); err != nil {
		return nil, err
	}

	limit := p.Limit
	if limit == 0 {
		limit = 50
	}
	comments, err := a.comments.ListByPost(c.Request.Context(), p.PostID, limit, p.Offset)
	if err != nil {
		a.logger.Error("Failed to list comments", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	views := make([]*CommentView, len(comments))
	for i, comment := range comments {
		views[i] = commentView(comment)
	}
	return views, nil
}

type commentCreateParams struct {
	PostID  int64  `json:"postId" validate:"required,gt=0"`
	Content string `json:"content" validate:"required,max=10000"`
}

// CreateComment adds a comment to a post and notifies the post author.
func (a *API) CreateComment(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p commentCreateParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	post, err := a.loadLive(c, p.PostID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, post, permissions.ActionViewPost); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   p.PostID,
		AuthorID: user.ID,
		Content:  sanitize.HTML(p.Content),
	}
	if err := a.comments.Create(c.Request.Context(), comment); err != nil {
		a.logger.Error("Failed to create comment", zap.Error(err))
		return nil, apierr.NewInternalError()
	}

	if post.AuthorID != user.ID {
		a.notifier.Notify([]int64{post.AuthorID}, notify.Message{
			Type:   notify.TypeNewComment,
			Title:  post.Title,
			Body:   user.Name + " commented on your post",
			PostID: post.ID,
		})
	}

	comment.Author = user
	return commentView(comment), nil
}

type commentDeleteParams struct {
	CommentID int64 `json:"commentId" validate:"required,gt=0"`
}

// DeleteComment soft-deletes a comment. Comment author or a moderation
// role in the post's owning scope.
func (a *API) DeleteComment(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p commentDeleteParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	comment, err := a.comments.GetByID(ctx, p.CommentID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if comment == nil || comment.IsDeleted {
		return nil, apierr.NewNotFoundError("comment %d not found", p.CommentID)
	}

	post, err := a.loadLive(c, comment.PostID)
	if err != nil {
		return nil, err
	}
	// Comment deletion follows post-deletion rules with the comment's
	// author as owner.
	ownerPost := *post
	ownerPost.AuthorID = comment.AuthorID
	if err := a.check(c, user, &ownerPost, permissions.ActionDeletePost); err != nil {
		return nil, err
	}

	if err := a.comments.SoftDelete(ctx, p.CommentID); err != nil {
		a.logger.Error("Failed to delete comment", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return gin.H{"deleted": true}, nil
}

// GetPoll returns a post's poll with vote tallies.
func (a *API) GetPoll(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p getParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	post, err := a.loadLive(c, p.PostID)
	if err != nil {
		return nil, err
	}
	user := actor.Viewer(c)
	if err := a.check(c, user, post, permissions.ActionViewPost); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	poll, err := a.polls.GetByPostID(ctx, p.PostID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if poll == nil {
		return nil, apierr.NewNotFoundError("post %d has no poll", p.PostID)
	}
	counts, err := a.polls.CountByOption(ctx, poll.ID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	return pollView(poll, counts), nil
}

type voteParams struct {
	PostID   int64 `json:"postId" validate:"required,gt=0"`
	OptionID int64 `json:"optionId" validate:"required,gt=0"`
}

// Vote records the caller's choice. Single-choice polls keep at most one
// vote per user; voting again moves the vote to the new option.
func (a *API) Vote(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p voteParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	post, err := a.loadLive(c, p.PostID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, post, permissions.ActionViewPost); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	poll, err := a.polls.GetByPostID(ctx, p.PostID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if poll == nil {
		return nil, apierr.NewNotFoundError("post %d has no poll", p.PostID)
	}
	option, err := a.polls.GetOption(ctx, poll.ID, p.OptionID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if option == nil {
		return nil, apierr.NewValidationError("option %d does not belong to this poll", p.OptionID)
	}

	vote := &models.PollVote{PollID: poll.ID, UserID: user.ID, OptionID: p.OptionID}
	if err := a.polls.Vote(ctx, vote); err != nil {
		a.logger.Error("Failed to record vote", zap.Error(err))
		return nil, apierr.NewInternalError()
	}

	counts, err := a.polls.CountByOption(ctx, poll.ID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	return pollView(poll, counts), nil
}
