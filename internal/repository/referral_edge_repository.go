package repository

import (
	"errors"
	"time"

	"github.com/invitearena/invitearena/internal/constants"
	"github.com/invitearena/invitearena/internal/models"

	"gorm.io/gorm"
)

// ReferralEdgeRepository 邀请归因数据访问接口
type ReferralEdgeRepository interface {
	WithTx(tx *gorm.DB) ReferralEdgeRepository

	Create(edge *models.ReferralEdge) error
	GetByReferredUserID(referredUserID uint) (*models.ReferralEdge, error)
	ListActiveByReferred(referredUserID uint) ([]models.ReferralEdge, error)
	MarkLeft(edgeID uint, now time.Time) (bool, error)
	CountActiveByReferrer(referrerID uint) (int64, error)
	SumActivePointsByReferrer(referrerID uint) (int, error)
}

// GormReferralEdgeRepository GORM 邀请归因仓储
type GormReferralEdgeRepository struct {
	db *gorm.DB
}

// NewReferralEdgeRepository 创建邀请归因仓储
func NewReferralEdgeRepository(db *gorm.DB) *GormReferralEdgeRepository {
	return &GormReferralEdgeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralEdgeRepository) WithTx(tx *gorm.DB) ReferralEdgeRepository {
	if tx == nil {
		return r
	}
	return &GormReferralEdgeRepository{db: tx}
}

// Create 创建邀请边
// 被邀方唯一索引兜底：同一参与者不可能出现第二条边。
func (r *GormReferralEdgeRepository) Create(edge *models.ReferralEdge) error {
	return r.db.Create(edge).Error
}

// GetByReferredUserID 按被邀请人获取邀请边
func (r *GormReferralEdgeRepository) GetByReferredUserID(referredUserID uint) (*models.ReferralEdge, error) {
	if referredUserID == 0 {
		return nil, nil
	}
	var edge models.ReferralEdge
	if err := r.db.Where("referred_user_id = ?", referredUserID).First(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &edge, nil
}

// ListActiveByReferred 列出被邀请人名下仍有效的邀请边
func (r *GormReferralEdgeRepository) ListActiveByReferred(referredUserID uint) ([]models.ReferralEdge, error) {
	if referredUserID == 0 {
		return []models.ReferralEdge{}, nil
	}
	var edges []models.ReferralEdge
	if err := r.db.Where("referred_user_id = ? AND status = ?", referredUserID, constants.ReferralEdgeStatusActive).
		Order("id asc").
		Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// MarkLeft 将邀请边标记为已退出
// 条件更新保证级联回收只执行一次。
func (r *GormReferralEdgeRepository) MarkLeft(edgeID uint, now time.Time) (bool, error) {
	if edgeID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.ReferralEdge{}).
		Where("id = ? AND status = ?", edgeID, constants.ReferralEdgeStatusActive).
		Updates(map[string]interface{}{
			"status":  constants.ReferralEdgeStatusLeft,
			"left_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountActiveByReferrer 统计邀请人名下有效边数
func (r *GormReferralEdgeRepository) CountActiveByReferrer(referrerID uint) (int64, error) {
	if referrerID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.ReferralEdge{}).
		Where("referrer_id = ? AND status = ?", referrerID, constants.ReferralEdgeStatusActive).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// SumActivePointsByReferrer 汇总邀请人名下有效边的冻结积分
// 用于校验计数字段与边状态一致（计数是边的缓存）。
func (r *GormReferralEdgeRepository) SumActivePointsByReferrer(referrerID uint) (int, error) {
	if referrerID == 0 {
		return 0, nil
	}
	var row struct {
		Total int64 `gorm:"column:total"`
	}
	if err := r.db.Model(&models.ReferralEdge{}).
		Select("COALESCE(SUM(points_awarded), 0) AS total").
		Where("referrer_id = ? AND status = ?", referrerID, constants.ReferralEdgeStatusActive).
		Scan(&row).Error; err != nil {
		return 0, err
	}
	return int(row.Total), nil
}
