package archive

import (
	"context"
	"errors"
	"fmt"

	"dreamui/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// archiveRow is the SQL shape of an entry. Timestamp columns avoid gorm's
// CreatedAt/UpdatedAt conventions because the reconciler owns them.
type archiveRow struct {
	ID          string               `gorm:"primaryKey;size:191"`
	Type        string               `gorm:"size:16;index"`
	Name        string               `gorm:"type:text"`
	Preview     string               `gorm:"type:text"`
	Model       string               `gorm:"size:255"`
	CreatedMs   int64                `gorm:"column:created_ms"`
	UpdatedMs   int64                `gorm:"column:updated_ms;index"`
	Messages    []models.ChatMessage `gorm:"serializer:json"`
	Text        string               `gorm:"type:text"`
	CharacterID *int64
}

func (archiveRow) TableName() string {
	return "archive_entries"
}

func rowFromEntry(e models.ArchiveEntry) archiveRow {
	return archiveRow{
		ID:          e.ID,
		Type:        e.Type,
		Name:        e.Name,
		Preview:     e.Preview,
		Model:       e.Model,
		CreatedMs:   e.CreatedAt,
		UpdatedMs:   e.UpdatedAt,
		Messages:    e.Messages,
		Text:        e.Text,
		CharacterID: e.CharacterID,
	}
}

func (r archiveRow) entry() models.ArchiveEntry {
	return models.ArchiveEntry{
		ID:          r.ID,
		Type:        r.Type,
		Name:        r.Name,
		Preview:     r.Preview,
		Model:       r.Model,
		CreatedAt:   NormalizeMillis(r.CreatedMs),
		UpdatedAt:   NormalizeMillis(r.UpdatedMs),
		Messages:    r.Messages,
		Text:        r.Text,
		CharacterID: r.CharacterID,
	}
}

// GormRepository stores entries in a SQL table (sqlite or postgres)
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository migrates the archive table and returns the repository
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&archiveRow{}); err != nil {
		return nil, fmt.Errorf("migrate archive table: %w", err)
	}
	return &GormRepository{db: db}, nil
}

// List implements Repository
func (r *GormRepository) List(ctx context.Context) ([]models.ArchiveEntry, error) {
	var rows []archiveRow
	if err := r.db.WithContext(ctx).Order("updated_ms desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	out := make([]models.ArchiveEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entry())
	}
	return out, nil
}

// Get implements Repository
func (r *GormRepository) Get(ctx context.Context, id string) (models.ArchiveEntry, error) {
	var row archiveRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ArchiveEntry{}, ErrNotFound
	}
	if err != nil {
		return models.ArchiveEntry{}, fmt.Errorf("get archive entry %s: %w", id, err)
	}
	return row.entry(), nil
}

// Put implements Repository
func (r *GormRepository) Put(ctx context.Context, entry models.ArchiveEntry) error {
	row := rowFromEntry(entry)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save archive entry %s: %w", entry.ID, err)
	}
	return nil
}

// Delete implements Repository
func (r *GormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&archiveRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete archive entry %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
