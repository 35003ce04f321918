package models

import (
	"time"
)

// ReferralEdge 邀请归因记录
// 每个被邀请者最多存在一条边（被邀方唯一索引），points_awarded 在创建时冻结，
// 后续调整积分配置不影响已有边。
type ReferralEdge struct {
	ID             uint       `gorm:"primarykey" json:"id"`                              // 主键
	ReferrerID     uint       `gorm:"not null;index" json:"referrer_id"`                 // 邀请人
	ReferredUserID uint       `gorm:"not null;uniqueIndex" json:"referred_user_id"`      // 被邀请人，全局唯一
	CommunityID    int64      `gorm:"not null;index" json:"community_id"`                // 社区ID
	Status         string     `gorm:"type:varchar(16);not null;index" json:"status"`     // active / left
	PointsAwarded  int        `gorm:"not null" json:"points_awarded"`                    // 创建时冻结的积分值
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                           // 创建时间
	LeftAt         *time.Time `json:"left_at,omitempty"`                                 // 被邀请人退出时间

	Referrer *Participant `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`          // 邀请人信息
	Referred *Participant `gorm:"foreignKey:ReferredUserID" json:"referred,omitempty"`      // 被邀请人信息
}

// TableName 指定表名
func (ReferralEdge) TableName() string {
	return "referral_edges"
}
