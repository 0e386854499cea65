// Package uploads implements the attachment REST endpoints: presigned
// upload requests, confirmation, video-conversion callbacks, the image
// proxy and link previews.
package uploads

import (
	"crypto/subtle"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/api/actor"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/linkpreview"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/storage"
	"github.com/huddlehq/huddle/pkg/logging"
)

// ConvertSecretHeader carries the video converter's shared secret on its
// callbacks.
const ConvertSecretHeader = "X-Convert-Secret"

// Handler serves the attachment REST endpoints.
type Handler struct {
	attachments   *db.AttachmentRepository
	store         *storage.Client
	previews      *linkpreview.Fetcher
	convertSecret string
	logger        *zap.Logger
}

// NewHandler creates the uploads REST handler
func NewHandler(repo *db.Repository, store *storage.Client, previews *linkpreview.Fetcher, convertSecret string) *Handler {
	return &Handler{
		attachments:   db.NewAttachmentRepository(repo),
		store:         store,
		previews:      previews,
		convertSecret: convertSecret,
		logger:        logging.WithComponent("uploads_api"),
	}
}

// callbackAuthorized checks the converter's shared secret. With no
// secret configured the callbacks are disabled outright; anyone knowing
// an object key could otherwise repoint its attachment.
func callbackAuthorized(secret, presented string) bool {
	if secret == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(presented)) == 1
}

// requireConverter rejects converter callbacks without the shared
// secret.
func (h *Handler) requireConverter(c *gin.Context) bool {
	if !callbackAuthorized(h.convertSecret, c.GetHeader(ConvertSecretHeader)) {
		h.logger.Warn("Rejected converter callback with bad secret",
			zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid converter credentials"})
		return false
	}
	return true
}

// requireStore rejects storage endpoints when no object store is
// configured.
func (h *Handler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
		return false
	}
	return true
}

type requestUploadRequest struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"contentType" binding:"required,max=128"`
	Key         string `json:"key"`
}

// RequestUpload issues a presigned PUT URL. The key is derived from the
// caller's email so uploads can only land under the caller's own prefix;
// a client-supplied key outside that prefix is rejected.
func (h *Handler) RequestUpload(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	user, err := actor.Require(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req requestUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename and contentType are required"})
		return
	}

	key := req.Key
	if key == "" {
		key = storage.BuildKey(user.Email, req.Filename, time.Now())
	}
	if !storage.ValidateKey(user.Email, key) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid file key"})
		return
	}

	url, err := h.store.PresignPut(c.Request.Context(), key, req.ContentType)
	if err != nil {
		h.logger.Error("Failed to presign upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploadId":  uuid.NewString(),
		"key":       key,
		"uploadUrl": url,
	})
}

type confirmRequest struct {
	Key         string `json:"key" binding:"required,max=1024"`
	MimeType    string `json:"mimeType" binding:"required,max=128"`
	Size        int64  `json:"size" binding:"required,gt=0"`
	CommunityID *int64 `json:"communityId"`
}

// ConfirmUpload records the uploaded object as an attachment. The row
// insert and the rewrite of its public URL to the image proxy happen in
// one transaction.
func (h *Handler) ConfirmUpload(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	user, err := actor.Require(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key, mimeType and size are required"})
		return
	}
	if !storage.ValidateKey(user.Email, req.Key) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid file key"})
		return
	}

	att := &models.Attachment{
		OwnerID:  user.ID,
		R2Key:    req.Key,
		R2URL:    h.store.ObjectURL(req.Key),
		MimeType: req.MimeType,
		Size:     req.Size,
	}
	if req.CommunityID != nil {
		att.CommunityID = sql.NullInt64{Int64: *req.CommunityID, Valid: true}
	}

	err = h.attachments.Confirm(c.Request.Context(), att, func(id int64) string {
		return "/api/images/" + strconv.FormatInt(id, 10)
	})
	if err != nil {
		h.logger.Error("Failed to confirm upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       att.ID,
		"url":      att.R2URL,
		"mimeType": att.MimeType,
		"size":     att.Size,
	})
}

type convertCompleteRequest struct {
	Key          string `json:"key" binding:"required,max=1024"`
	NewKey       string `json:"newKey" binding:"required,max=1024"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// ConvertComplete is the video converter's success callback: the
// attachment moves to the converted object, keeping the original for a
// possible revert.
func (h *Handler) ConvertComplete(c *gin.Context) {
	if !h.requireConverter(c) {
		return
	}
	if !h.requireStore(c) {
		return
	}
	var req convertCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key and newKey are required"})
		return
	}

	ctx := c.Request.Context()
	att, err := h.attachments.GetByKey(ctx, req.Key)
	if err != nil {
		h.logger.Error("Failed to load attachment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if att == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
		return
	}

	newURL := h.store.ObjectURL(req.NewKey)
	if err := h.attachments.ApplyConversion(ctx, att.ID, req.NewKey, newURL, req.ThumbnailURL); err != nil {
		h.logger.Error("Failed to apply conversion", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"converted": true})
}

type convertErrorRequest struct {
	Key string `json:"key" binding:"required,max=1024"`
}

// ConvertError is the video converter's failure callback: the attachment
// reverts to its original object so it never points at a missing one.
func (h *Handler) ConvertError(c *gin.Context) {
	if !h.requireConverter(c) {
		return
	}
	var req convertErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	ctx := c.Request.Context()
	att, err := h.attachments.GetByKey(ctx, req.Key)
	if err != nil {
		h.logger.Error("Failed to load attachment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if att == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
		return
	}

	if err := h.attachments.RevertConversion(ctx, att.ID); err != nil {
		h.logger.Error("Failed to revert conversion", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reverted": true})
}

// Image proxies an attachment's object through the server so bucket URLs
// never leak to clients.
func (h *Handler) Image(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attachment id"})
		return
	}

	ctx := c.Request.Context()
	att, err := h.attachments.GetByID(ctx, id)
	if err != nil {
		h.logger.Error("Failed to load attachment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if att == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
		return
	}

	body, contentType, size, err := h.store.Get(ctx, att.R2Key)
	if err != nil {
		h.logger.Error("Failed to fetch object", zap.String("key", att.R2Key), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, size, contentType, body, nil)
}

// LinkPreview fetches Open Graph metadata for a URL.
func (h *Handler) LinkPreview(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	preview, err := h.previews.Fetch(c.Request.Context(), rawURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not fetch preview"})
		return
	}
	c.JSON(http.StatusOK, preview)
}
