package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/huddlehq/huddle/internal/models"
)

// AttachmentRepository provides attachment-related database operations
type AttachmentRepository struct {
	*Repository
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(repo *Repository) *AttachmentRepository {
	return &AttachmentRepository{Repository: repo}
}

// GetByID retrieves an attachment by ID
func (r *AttachmentRepository) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	var att models.Attachment
	if err := r.db.WithContext(ctx).First(&att, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &att, nil
}

// GetByKey retrieves an attachment by storage key
func (r *AttachmentRepository) GetByKey(ctx context.Context, key string) (*models.Attachment, error) {
	var att models.Attachment
	if err := r.db.WithContext(ctx).Where("r2_key = ?", key).First(&att).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &att, nil
}

// Confirm inserts the attachment row and rewrites its public URL to the
// internal proxy path in one transaction; a failure leaves no confirmed
// row behind.
func (r *AttachmentRepository) Confirm(ctx context.Context, att *models.Attachment, proxyPath func(id int64) string) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(att).Error; err != nil {
			return err
		}
		att.R2URL = proxyPath(att.ID)
		return tx.Model(&models.Attachment{}).
			Where("id = ?", att.ID).
			Update("r2_url", att.R2URL).Error
	})
}

// ApplyConversion updates the attachment after a successful video
// conversion, keeping the pre-conversion key/URL for a later revert.
func (r *AttachmentRepository) ApplyConversion(ctx context.Context, id int64, newKey, newURL, thumbnailURL string) error {
	att, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if att == nil {
		return fmt.Errorf("attachment %d not found", id)
	}

	return r.db.WithContext(ctx).
		Model(&models.Attachment{}).
		Where("id = ?", id).
		Updates(conversionUpdates(att, newKey, newURL, thumbnailURL)).Error
}

// conversionUpdates builds the column updates recording a completed
// conversion. The current key/URL move into the original columns so the
// conversion can be undone later.
func conversionUpdates(att *models.Attachment, newKey, newURL, thumbnailURL string) map[string]interface{} {
	updates := map[string]interface{}{
		"original_key": att.R2Key,
		"original_url": att.R2URL,
		"r2_key":       newKey,
		"r2_url":       newURL,
	}
	if thumbnailURL != "" {
		updates["thumbnail_url"] = thumbnailURL
	}
	return updates
}

// RevertConversion restores the original key/URL after a failed video
// conversion. ThumbnailURL is left untouched. Missing originals make the
// revert a no-op so the record never points at a nonexistent object.
func (r *AttachmentRepository) RevertConversion(ctx context.Context, id int64) error {
	att, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if att == nil {
		return fmt.Errorf("attachment %d not found", id)
	}
	updates := revertUpdates(att)
	if updates == nil {
		return nil
	}

	return r.db.WithContext(ctx).
		Model(&models.Attachment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// revertUpdates builds the column updates restoring the pre-conversion
// object, clearing the original columns. It returns nil when no originals
// are recorded, making the revert a no-op. ThumbnailURL is never touched.
func revertUpdates(att *models.Attachment) map[string]interface{} {
	if !att.OriginalKey.Valid || !att.OriginalURL.Valid {
		return nil
	}
	return map[string]interface{}{
		"r2_key":       att.OriginalKey.String,
		"r2_url":       att.OriginalURL.String,
		"original_key": sql.NullString{},
		"original_url": sql.NullString{},
	}
}
