package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/pkg/config"
	"github.com/huddlehq/huddle/pkg/logging"
)

// Notification types
const (
	TypeNewPost    = "new_post"
	TypeNewComment = "new_comment"
	TypeMemberRole = "member_role"
	TypeChat       = "chat_message"
)

// Message is the payload pushed to subscribed devices.
type Message struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	PostID      int64  `json:"postId,omitempty"`
	CommunityID int64  `json:"communityId,omitempty"`
	ThreadID    int64  `json:"threadId,omitempty"`
}

// Notifier fans out web-push messages. Delivery is fire-and-forget,
// at-most-once: a failed delivery is logged, expired endpoints are
// pruned, and nothing blocks or fails the triggering mutation. A nil
// *Notifier is valid and drops everything.
type Notifier struct {
	subs   *db.PushRepository
	cfg    config.PushConfig
	logger *zap.Logger
}

// New creates a notifier, nil when push is not configured
func New(cfg *config.PushConfig, repo *db.Repository) *Notifier {
	if !cfg.Enabled {
		logging.GetLogger().Info("Push notifications disabled")
		return nil
	}
	return &Notifier{
		subs:   db.NewPushRepository(repo),
		cfg:    *cfg,
		logger: logging.WithComponent("notify"),
	}
}

// Notify pushes a message to every device of the given users in the
// background.
func (n *Notifier) Notify(userIDs []int64, msg Message) {
	if n == nil || len(userIDs) == 0 {
		return
	}
	go n.fanOut(userIDs, msg)
}

func (n *Notifier) fanOut(userIDs []int64, msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	subs, err := n.subs.ListByUsers(ctx, userIDs)
	if err != nil {
		n.logger.Warn("Failed to load push subscriptions", zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.Warn("Failed to encode push payload", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *models.PushSubscription) {
			defer wg.Done()
			n.deliver(ctx, sub, payload)
		}(sub)
	}
	wg.Wait()
}

func (n *Notifier) deliver(ctx context.Context, sub *models.PushSubscription, payload []byte) {
	resp, err := webpush.SendNotification(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      n.cfg.Subscriber,
		VAPIDPublicKey:  n.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: n.cfg.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		n.logger.Warn("Push delivery failed",
			zap.Int64("user_id", sub.UserID),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Gone endpoints are pruned so dead devices stop accumulating.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		if err := n.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
			n.logger.Warn("Failed to prune expired subscription", zap.Error(err))
		}
		return
	}
	if resp.StatusCode >= 400 {
		n.logger.Warn("Push delivery rejected",
			zap.Int64("user_id", sub.UserID),
			zap.Int("status", resp.StatusCode))
	}
}
