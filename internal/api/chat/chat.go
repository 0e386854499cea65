// Package chat implements the chat.* JSON-RPC methods. The feature is a
// minimal thread/message CRUD; only participants see a thread.
package chat

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/api/actor"
	"github.com/huddlehq/huddle/internal/api/apierr"
	"github.com/huddlehq/huddle/internal/api/params"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/notify"
	"github.com/huddlehq/huddle/pkg/logging"
)

// API implements the chat method group.
type API struct {
	chat     *db.ChatRepository
	users    *db.UserRepository
	notifier *notify.Notifier
	logger   *zap.Logger
}

// NewAPI creates the chat API
func NewAPI(repo *db.Repository, notifier *notify.Notifier) *API {
	return &API{
		chat:     db.NewChatRepository(repo),
		users:    db.NewUserRepository(repo),
		notifier: notifier,
		logger:   logging.WithComponent("chat_api"),
	}
}

// ThreadView is the thread shape returned to clients.
type ThreadView struct {
	ID             int64   `json:"id"`
	ParticipantIDs []int64 `json:"participantIds"`
	CreatedAt      int64   `json:"createdAt"`
}

// MessageView is the message shape returned to clients.
type MessageView struct {
	ID        int64  `json:"id"`
	ThreadID  int64  `json:"threadId"`
	SenderID  int64  `json:"senderId"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

func threadView(thread *models.ChatThread) *ThreadView {
	v := &ThreadView{
		ID:             thread.ID,
		ParticipantIDs: make([]int64, len(thread.Participants)),
		CreatedAt:      thread.CreatedAt.Unix(),
	}
	for i, p := range thread.Participants {
		v.ParticipantIDs[i] = p.UserID
	}
	return v
}

func messageView(msg *models.ChatMessage) *MessageView {
	return &MessageView{
		ID:        msg.ID,
		ThreadID:  msg.ThreadID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.Unix(),
	}
}

type createThreadParams struct {
	UserIDs []int64 `json:"userIds" validate:"required,min=1,max=50,dive,gt=0"`
}

// CreateThread starts a conversation between the caller and the given
// users.
func (a *API) CreateThread(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p createThreadParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	ids := []int64{user.ID}
	for _, id := range p.UserIDs {
		if id == user.ID {
			continue
		}
		target, err := a.users.GetByID(ctx, id)
		if err != nil {
			return nil, apierr.NewInternalError()
		}
		if target == nil {
			return nil, apierr.NewNotFoundError("user %d not found", id)
		}
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil, apierr.NewValidationError("a thread needs at least one other participant")
	}

	thread, err := a.chat.CreateThread(ctx, ids)
	if err != nil {
		a.logger.Error("Failed to create chat thread", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return threadView(thread), nil
}

type threadParams struct {
	ThreadID int64 `json:"threadId" validate:"required,gt=0"`
}

// GetThread returns a thread the caller participates in.
func (a *API) GetThread(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p threadParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	thread, err := a.loadForParticipant(c, p.ThreadID, user.ID)
	if err != nil {
		return nil, err
	}
	return threadView(thread), nil
}

type sendParams struct {
	ThreadID int64  `json:"threadId" validate:"required,gt=0"`
	Content  string `json:"content" validate:"required,max=10000"`
}

// SendMessage appends a message to a thread and notifies the other
// participants.
func (a *API) SendMessage(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p sendParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	thread, err := a.loadForParticipant(c, p.ThreadID, user.ID)
	if err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		ThreadID: p.ThreadID,
		SenderID: user.ID,
		Content:  p.Content,
	}
	if err := a.chat.AddMessage(c.Request.Context(), msg); err != nil {
		a.logger.Error("Failed to send chat message", zap.Error(err))
		return nil, apierr.NewInternalError()
	}

	targets := make([]int64, 0, len(thread.Participants))
	for _, participant := range thread.Participants {
		if participant.UserID != user.ID {
			targets = append(targets, participant.UserID)
		}
	}
	a.notifier.Notify(targets, notify.Message{
		Type:     notify.TypeChat,
		Title:    user.Name,
		Body:     p.Content,
		ThreadID: p.ThreadID,
	})

	return messageView(msg), nil
}

type listParams struct {
	ThreadID int64 `json:"threadId" validate:"required,gt=0"`
	Limit    int   `json:"limit" validate:"omitempty,gt=0,lte=100"`
	Offset   int   `json:"offset" validate:"omitempty,gte=0"`
}

// ListMessages returns a thread's messages, oldest first.
func (a *API) ListMessages(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p listParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	if _, err := a.loadForParticipant(c, p.ThreadID, user.ID); err != nil {
		return nil, err
	}

	limit := p.Limit
	if limit == 0 {
		limit = 50
	}
	messages, err := a.chat.ListMessages(c.Request.Context(), p.ThreadID, limit, p.Offset)
	if err != nil {
		a.logger.Error("Failed to list chat messages", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	views := make([]*MessageView, len(messages))
	for i, msg := range messages {
		views[i] = messageView(msg)
	}
	return views, nil
}

// loadForParticipant fetches a thread, hiding it from non-participants.
func (a *API) loadForParticipant(c *gin.Context, threadID, userID int64) (*models.ChatThread, error) {
	ctx := c.Request.Context()
	thread, err := a.chat.GetThread(ctx, threadID)
	if err != nil {
		a.logger.Error("Failed to load chat thread", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	if thread == nil {
		return nil, apierr.NewNotFoundError("thread %d not found", threadID)
	}
	ok, err := a.chat.IsParticipant(ctx, threadID, userID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if !ok {
		return nil, apierr.NewNotFoundError("thread %d not found", threadID)
	}
	return thread, nil
}
