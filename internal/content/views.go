package content

import (
	"time"

	"github.com/huddlehq/huddle/internal/models"
)

// Sort orders a page of posts.
type Sort string

// Sort values
const (
	SortLatest        Sort = "latest"
	SortOldest        Sort = "oldest"
	SortMostCommented Sort = "most-commented"
)

// ParseSort validates a sort string.
func ParseSort(s string) (Sort, bool) {
	switch Sort(s) {
	case SortLatest, SortOldest, SortMostCommented:
		return Sort(s), true
	}
	return "", false
}

// PostView is the post shape returned to clients. Source is "community"
// when the post belongs to a community, "org" otherwise.
type PostView struct {
	ID           int64            `json:"id"`
	Title        string           `json:"title"`
	Content      string           `json:"content"`
	Source       string           `json:"source"`
	Author       AuthorView       `json:"author"`
	Community    *CommunityView   `json:"community,omitempty"`
	Tags         []string         `json:"tags"`
	Attachments  []AttachmentView `json:"attachments"`
	CommentCount int64            `json:"commentCount"`
	CreatedAt    time.Time        `json:"createdAt"`
	SavedAt      *time.Time       `json:"savedAt,omitempty"`
}

// AuthorView is the author shape embedded in a post view.
type AuthorView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// CommunityView is the community shape embedded in a post view.
type CommunityView struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// AttachmentView is the attachment shape embedded in a post view.
type AttachmentView struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
}

// Page is one page of post views.
type Page struct {
	Posts       []*PostView `json:"posts"`
	TotalCount  int64       `json:"totalCount"`
	NextOffset  *int        `json:"nextOffset"`
	HasNextPage bool        `json:"hasNextPage"`
}

// NewPostView shapes a post for clients.
func NewPostView(post *models.Post, commentCount int64) *PostView {
	view := &PostView{
		ID:           post.ID,
		Title:        post.Title,
		Content:      post.Content,
		Source:       "org",
		CommentCount: commentCount,
		CreatedAt:    post.CreatedAt,
		Tags:         make([]string, 0, len(post.Tags)),
		Attachments:  make([]AttachmentView, 0, len(post.Attachments)),
	}

	if post.Author != nil {
		view.Author = AuthorView{
			ID:        post.Author.ID,
			Name:      post.Author.Name,
			AvatarURL: post.Author.AvatarURL,
		}
	}
	if post.CommunityID.Valid {
		view.Source = "community"
		if post.Community != nil {
			view.Community = &CommunityView{
				ID:   post.Community.ID,
				Slug: post.Community.Slug,
				Name: post.Community.Name,
			}
		}
	}
	for _, tag := range post.Tags {
		view.Tags = append(view.Tags, tag.Name)
	}
	for _, att := range post.Attachments {
		av := AttachmentView{
			ID:       att.ID,
			URL:      att.R2URL,
			MimeType: att.MimeType,
			Size:     att.Size,
		}
		if att.ThumbnailURL.Valid {
			av.ThumbnailURL = att.ThumbnailURL.String
		}
		view.Attachments = append(view.Attachments, av)
	}

	return view
}
