package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/invitearena/invitearena/internal/models"

	"gorm.io/gorm"
)

// participantOrderExpr 排行榜唯一全序
// 积分降序；首个邀请积分时间升序且空值排最后；有效邀请数降序；加入时间升序；
// 主键升序兜底保证同数据多次查询结果稳定。
const participantOrderExpr = "points DESC, " +
	"CASE WHEN first_referral_point_at IS NULL THEN 1 ELSE 0 END ASC, " +
	"first_referral_point_at ASC, " +
	"referral_count DESC, " +
	"joined_at ASC, " +
	"id ASC"

// ProfileUpdate 参与者资料刷新字段
type ProfileUpdate struct {
	DisplayName string
	Username    string
}

// ParticipantRepository 参与者数据访问接口
type ParticipantRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ParticipantRepository

	GetByID(id uint) (*models.Participant, error)
	GetByExternalID(communityID, externalUserID int64) (*models.Participant, error)
	GetByReferralCode(code string) (*models.Participant, error)
	Create(participant *models.Participant) error
	Reactivate(id uint, profile ProfileUpdate, now time.Time) (bool, error)
	ApplyReferralAward(referrerID uint, points int, now time.Time) (bool, error)
	RevokeReferralAward(referrerID uint, points int, now time.Time) error
	CompleteTask(id uint, points int, now time.Time) (bool, error)
	Deactivate(id uint, now time.Time) (bool, error)
	ListActiveRanked(communityID int64, limit int) ([]models.Participant, error)
	ActiveRank(communityID int64, participantID uint) (int, error)
	CountActive(communityID int64) (int64, error)
}

// GormParticipantRepository GORM 参与者仓储
type GormParticipantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository 创建参与者仓储
func NewParticipantRepository(db *gorm.DB) *GormParticipantRepository {
	return &GormParticipantRepository{db: db}
}

// WithTx 绑定事务
func (r *GormParticipantRepository) WithTx(tx *gorm.DB) ParticipantRepository {
	if tx == nil {
		return r
	}
	return &GormParticipantRepository{db: tx}
}

// Transaction 执行事务
func (r *GormParticipantRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按主键获取参与者
func (r *GormParticipantRepository) GetByID(id uint) (*models.Participant, error) {
	if id == 0 {
		return nil, nil
	}
	var participant models.Participant
	if err := r.db.First(&participant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &participant, nil
}

// GetByExternalID 按外部用户与社区获取参与者
func (r *GormParticipantRepository) GetByExternalID(communityID, externalUserID int64) (*models.Participant, error) {
	if communityID == 0 || externalUserID == 0 {
		return nil, nil
	}
	var participant models.Participant
	if err := r.db.Where("community_id = ? AND external_user_id = ?", communityID, externalUserID).
		First(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &participant, nil
}

// GetByReferralCode 按邀请码获取参与者
func (r *GormParticipantRepository) GetByReferralCode(code string) (*models.Participant, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var participant models.Participant
	if err := r.db.Where("referral_code = ?", normalized).First(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &participant, nil
}

// Create 创建参与者
// 唯一索引冲突原样返回，由服务层按取回已有行或换码重试处理。
func (r *GormParticipantRepository) Create(participant *models.Participant) error {
	return r.db.Create(participant).Error
}

// Reactivate 重新激活已退出的参与者
// 条件更新保证幂等：已激活的行不受影响，返回 false。
func (r *GormParticipantRepository) Reactivate(id uint, profile ProfileUpdate, now time.Time) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Participant{}).
		Where("id = ? AND is_active = ?", id, false).
		Updates(map[string]interface{}{
			"is_active":    true,
			"display_name": strings.TrimSpace(profile.DisplayName),
			"username":     strings.TrimSpace(profile.Username),
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ApplyReferralAward 给邀请人加积分
// 首个邀请积分时间只写一次，COALESCE 保证后续邀请不覆盖。
// 只对仍在社区内的邀请人生效：解析与提交之间退出的邀请人不再加分，返回 false。
func (r *GormParticipantRepository) ApplyReferralAward(referrerID uint, points int, now time.Time) (bool, error) {
	if referrerID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Participant{}).
		Where("id = ? AND is_active = ?", referrerID, true).
		Updates(map[string]interface{}{
			"points":                  gorm.Expr("points + ?", points),
			"referral_count":          gorm.Expr("referral_count + 1"),
			"first_referral_point_at": gorm.Expr("COALESCE(first_referral_point_at, ?)", now),
			"updated_at":              now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RevokeReferralAward 回收邀请积分
func (r *GormParticipantRepository) RevokeReferralAward(referrerID uint, points int, now time.Time) error {
	if referrerID == 0 {
		return nil
	}
	return r.db.Model(&models.Participant{}).
		Where("id = ?", referrerID).
		Updates(map[string]interface{}{
			"points":         gorm.Expr("points - ?", points),
			"referral_count": gorm.Expr("referral_count - 1"),
			"updated_at":     now,
		}).Error
}

// CompleteTask 一次性任务的原子判定加分
// 检查与写入在同一条 UPDATE 内完成，并发调用只有一个生效。
func (r *GormParticipantRepository) CompleteTask(id uint, points int, now time.Time) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Participant{}).
		Where("id = ? AND task_completed = ?", id, false).
		Updates(map[string]interface{}{
			"task_completed": true,
			"points":         gorm.Expr("points + ?", points),
			"updated_at":     now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Deactivate 停用参与者
// 条件更新保证重复退出事件为空操作。
func (r *GormParticipantRepository) Deactivate(id uint, now time.Time) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Participant{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListActiveRanked 按排行榜全序列出活跃参与者
func (r *GormParticipantRepository) ListActiveRanked(communityID int64, limit int) ([]models.Participant, error) {
	if communityID == 0 {
		return []models.Participant{}, nil
	}
	query := r.db.Where("community_id = ? AND is_active = ?", communityID, true).
		Order(participantOrderExpr)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var participants []models.Participant
	if err := query.Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

// ActiveRank 计算参与者名次（1 起），与 ListActiveRanked 共用同一排序表达式
// 未上榜（不存在或已退出）返回 0。
func (r *GormParticipantRepository) ActiveRank(communityID int64, participantID uint) (int, error) {
	if communityID == 0 || participantID == 0 {
		return 0, nil
	}
	var row struct {
		Rank int64 `gorm:"column:rank"`
	}
	err := r.db.Raw(
		"SELECT rank FROM ("+
			"SELECT id, ROW_NUMBER() OVER (ORDER BY "+participantOrderExpr+") AS rank "+
			"FROM participants WHERE community_id = ? AND is_active = ?"+
			") ranked WHERE ranked.id = ?",
		communityID, true, participantID,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return int(row.Rank), nil
}

// CountActive 统计活跃参与者数
func (r *GormParticipantRepository) CountActive(communityID int64) (int64, error) {
	if communityID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.Participant{}).
		Where("community_id = ? AND is_active = ?", communityID, true).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
