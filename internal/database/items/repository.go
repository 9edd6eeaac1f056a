// Package items provides database operations for saved items.
//
// Every read and write is scoped by (id, userID): operations against a row
// owned by another user report gorm.ErrRecordNotFound, never the row.
//
// # Usage
//
//	repo := items.NewRepository(db)
//	item, err := repo.Create("https://example.com/post", userID)
package items

import (
	"time"

	"gorm.io/gorm"

	"linkstash/internal/entities"
)

// ListFilter narrows ListForUser results.
type ListFilter struct {
	Status entities.ItemStatus // empty means all statuses
	Limit  int
	Offset int
}

// Repository handles all saved-item database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new items repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new PENDING item for the given owner.
func (r *Repository) Create(url string, userID uint) (*entities.SavedItem, error) {
	item := &entities.SavedItem{
		URL:    url,
		UserID: userID,
		Status: entities.ItemStatusPending,
	}
	if err := r.db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// CreateBatch inserts one PENDING row per URL, preserving input order.
func (r *Repository) CreateBatch(urls []string, userID uint) ([]entities.SavedItem, error) {
	items := make([]entities.SavedItem, len(urls))
	for i, url := range urls {
		items[i] = entities.SavedItem{
			URL:    url,
			UserID: userID,
			Status: entities.ItemStatusPending,
		}
	}
	if err := r.db.Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SetStatus transitions an item to the given status without touching
// any content fields.
func (r *Repository) SetStatus(id, userID uint, status entities.ItemStatus) error {
	result := r.db.Model(&entities.SavedItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetContent writes the extracted page fields and marks the item COMPLETED
// in a single update.
func (r *Repository) SetContent(id, userID uint, fields entities.ContentFields) error {
	result := r.db.Model(&entities.SavedItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"title":        fields.Title,
			"content":      fields.Content,
			"og_image":     fields.OGImage,
			"author":       fields.Author,
			"published_at": fields.PublishedAt,
			"status":       entities.ItemStatusCompleted,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkFailed transitions an item to FAILED, leaving content fields untouched.
func (r *Repository) MarkFailed(id, userID uint) error {
	return r.SetStatus(id, userID, entities.ItemStatusFailed)
}

// SetSummaryAndTags writes the summary and its derived tags in one update so
// no reader ever observes a summary with stale tags.
func (r *Repository) SetSummaryAndTags(id, userID uint, summary string, tags []string) error {
	result := r.db.Model(&entities.SavedItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"summary": summary,
			"tags":    entities.StringSlice(tags),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetSummary writes the summary alone, leaving tags untouched. Used when tag
// generation failed and will be retried later.
func (r *Repository) SetSummary(id, userID uint, summary string) error {
	result := r.db.Model(&entities.SavedItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("summary", summary)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetTags writes the tags alone. Used by the tag-retry task after the summary
// was already persisted.
func (r *Repository) SetTags(id, userID uint, tags []string) error {
	result := r.db.Model(&entities.SavedItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("tags", entities.StringSlice(tags))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetForUser retrieves an item owned by the given user.
func (r *Repository) GetForUser(id, userID uint) (*entities.SavedItem, error) {
	var item entities.SavedItem
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListForUser retrieves the user's items, newest first.
func (r *Repository) ListForUser(userID uint, filter ListFilter) ([]entities.SavedItem, error) {
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var items []entities.SavedItem
	err := query.Find(&items).Error
	return items, err
}

// DeleteForUser removes an item owned by the given user.
func (r *Repository) DeleteForUser(id, userID uint) error {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).
		Delete(&entities.SavedItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByStatus returns per-status item counts for a user.
func (r *Repository) CountByStatus(userID uint) (map[entities.ItemStatus]int64, error) {
	type row struct {
		Status entities.ItemStatus
		Count  int64
	}
	var rows []row
	err := r.db.Model(&entities.SavedItem{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[entities.ItemStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// ListStuckOlderThan returns non-terminal items (across all users) whose
// last update is older than the given age. PENDING rows are left behind by
// cancelled bulk imports; stale PROCESSING rows by a fetch that was cut
// short mid-flight or a process crash. Both are eligible for re-enqueueing.
func (r *Repository) ListStuckOlderThan(age time.Duration, limit int) ([]entities.SavedItem, error) {
	cutoff := time.Now().Add(-age)
	query := r.db.Where("status IN ? AND updated_at < ?",
		[]entities.ItemStatus{entities.ItemStatusPending, entities.ItemStatusProcessing}, cutoff).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var items []entities.SavedItem
	err := query.Find(&items).Error
	return items, err
}
