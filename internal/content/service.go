package content

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/cache"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/pkg/logging"
	"github.com/huddlehq/huddle/pkg/telemetry"
)

const (
	maxPageSize = 100
	feedTTL     = 3 * time.Second
)

// Service builds filtered, sorted, paginated post views for a viewer.
type Service struct {
	saved    *db.SavedPostRepository
	posts    *db.PostRepository
	comments *db.CommentRepository
	cache    *cache.Cache
	logger   *zap.Logger
}

// NewService creates a content query service
func NewService(repo *db.Repository, redisCache *cache.Cache) *Service {
	return &Service{
		saved:    db.NewSavedPostRepository(repo),
		posts:    db.NewPostRepository(repo),
		comments: db.NewCommentRepository(repo),
		cache:    redisCache,
		logger:   logging.WithComponent("content"),
	}
}

// SavedPostsQuery selects a page of a user's bookmarks.
type SavedPostsQuery struct {
	Limit  int
	Offset int
	Sort   Sort
}

func (q SavedPostsQuery) validate() error {
	if q.Limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset must not be negative")
	}
	if _, ok := ParseSort(string(q.Sort)); !ok {
		return fmt.Errorf("invalid sort: %s", q.Sort)
	}
	return nil
}

// SavedPosts returns a page of the user's bookmarked posts. Bookmarks are
// fetched newest-save-first, soft-deleted posts are excluded before
// pagination, and the page is re-sorted in memory by the requested order.
func (s *Service) SavedPosts(ctx context.Context, userID int64, q SavedPostsQuery) (*Page, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.saved_posts")
	defer span.End()

	if err := q.validate(); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit > maxPageSize {
		limit = maxPageSize
	}

	rows, err := s.saved.ListPage(ctx, userID, limit, q.Offset)
	if err != nil {
		return nil, err
	}

	postIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		if row.Post == nil || row.Post.IsDeleted {
			continue
		}
		postIDs = append(postIDs, row.PostID)
	}

	counts, err := s.comments.CountLiveByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	views := make([]*PostView, 0, len(rows))
	for _, row := range rows {
		if row.Post == nil || row.Post.IsDeleted {
			continue
		}
		view := NewPostView(row.Post, counts[row.PostID])
		savedAt := row.CreatedAt
		view.SavedAt = &savedAt
		views = append(views, view)
	}

	sortViews(views, q.Sort)

	total, err := s.saved.CountLive(ctx, userID)
	if err != nil {
		return nil, err
	}
	nextOffset, hasNext := pageBounds(total, limit, q.Offset)

	return &Page{
		Posts:       views,
		TotalCount:  total,
		NextOffset:  nextOffset,
		HasNextPage: hasNext,
	}, nil
}

// CommunityFeed returns a page of a community's live posts, newest first.
// Pages are cached briefly; visibility is the caller's concern.
func (s *Service) CommunityFeed(ctx context.Context, communityID int64, limit, offset int) ([]*PostView, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.community_feed")
	defer span.End()

	limit = clampLimit(limit)

	cacheKey := cache.HashKey("community_feed",
		fmt.Sprintf("%d", communityID), fmt.Sprintf("%d", limit), fmt.Sprintf("%d", offset))
	if s.cache != nil {
		var cached []*PostView
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	posts, err := s.posts.FeedByCommunity(ctx, communityID, limit, offset)
	if err != nil {
		return nil, err
	}
	views, err := s.buildViews(ctx, posts)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, views, feedTTL); err != nil && err != cache.ErrCacheDisabled {
			s.logger.Warn("Failed to cache community feed", zap.Error(err))
		}
	}
	return views, nil
}

// OrgFeed returns a page of an org's live org-wide posts, newest first.
func (s *Service) OrgFeed(ctx context.Context, orgID int64, limit, offset int) ([]*PostView, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.org_feed")
	defer span.End()

	posts, err := s.posts.FeedByOrg(ctx, orgID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	return s.buildViews(ctx, posts)
}

func (s *Service) buildViews(ctx context.Context, posts []*models.Post) ([]*PostView, error) {
	ids := make([]int64, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
	}
	counts, err := s.comments.CountLiveByPostIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*PostView, len(posts))
	for i, post := range posts {
		views[i] = NewPostView(post, counts[post.ID])
	}
	return views, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
