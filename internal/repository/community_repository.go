package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/invitearena/invitearena/internal/models"

	"gorm.io/gorm"
)

// CommunityRepository 社区数据访问接口
type CommunityRepository interface {
	GetByChatID(chatID int64) (*models.Community, error)
	Create(community *models.Community) error
	UpdateTitle(id uint, title string, now time.Time) error
	ListEnabled() ([]models.Community, error)
}

// GormCommunityRepository GORM 社区仓储
type GormCommunityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository 创建社区仓储
func NewCommunityRepository(db *gorm.DB) *GormCommunityRepository {
	return &GormCommunityRepository{db: db}
}

// GetByChatID 按频道ID获取社区
func (r *GormCommunityRepository) GetByChatID(chatID int64) (*models.Community, error) {
	if chatID == 0 {
		return nil, nil
	}
	var community models.Community
	if err := r.db.Where("chat_id = ?", chatID).First(&community).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &community, nil
}

// Create 创建社区
func (r *GormCommunityRepository) Create(community *models.Community) error {
	return r.db.Create(community).Error
}

// UpdateTitle 更新社区名称
func (r *GormCommunityRepository) UpdateTitle(id uint, title string, now time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Community{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":      strings.TrimSpace(title),
			"updated_at": now,
		}).Error
}

// ListEnabled 列出开启活动的社区
func (r *GormCommunityRepository) ListEnabled() ([]models.Community, error) {
	var communities []models.Community
	if err := r.db.Where("is_enabled = ?", true).Order("id asc").Find(&communities).Error; err != nil {
		return nil, err
	}
	return communities, nil
}
