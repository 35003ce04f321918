package service

import (
	"github.com/invitearena/invitearena/internal/models"
	"github.com/invitearena/invitearena/internal/queue"
)

// MembershipState 参与者生命周期状态
type MembershipState string

const (
	MembershipUnregistered MembershipState = "unregistered"
	MembershipActive       MembershipState = "active"
	MembershipInactive     MembershipState = "inactive"
)

// MembershipEvent 生命周期事件
type MembershipEvent string

const (
	MembershipEventRegister MembershipEvent = "register"
	MembershipEventDepart   MembershipEvent = "depart"
)

// MembershipAction 状态迁移产出的动作
type MembershipAction string

const (
	// ActionCreate 创建新参与者（可能触发邀请归因）
	ActionCreate MembershipAction = "create"
	// ActionReactivate 重新激活，不产生任何积分副作用
	ActionReactivate MembershipAction = "reactivate"
	// ActionDeactivate 停用并回收名下有效邀请积分
	ActionDeactivate MembershipAction = "deactivate"
	// ActionNone 空操作（重复事件）
	ActionNone MembershipAction = "none"
)

// StateOf 读取参与者当前生命周期状态
func StateOf(participant *models.Participant) MembershipState {
	if participant == nil {
		return MembershipUnregistered
	}
	if participant.IsActive {
		return MembershipActive
	}
	return MembershipInactive
}

// Transition 生命周期纯迁移函数
// 只计算 (状态, 事件) 对应的动作，不接触存储；幂等事件映射为 ActionNone。
func Transition(state MembershipState, event MembershipEvent) MembershipAction {
	switch event {
	case MembershipEventRegister:
		switch state {
		case MembershipUnregistered:
			return ActionCreate
		case MembershipInactive:
			return ActionReactivate
		default:
			return ActionNone
		}
	case MembershipEventDepart:
		if state == MembershipActive {
			return ActionDeactivate
		}
		return ActionNone
	default:
		return ActionNone
	}
}

// BuildRevocations 计算退出级联要回收的积分增量
// 每条有效入边对应一笔回收，金额取边上冻结的 points_awarded。
func BuildRevocations(edges []models.ReferralEdge) []queue.RevokedReferral {
	revocations := make([]queue.RevokedReferral, 0, len(edges))
	for _, edge := range edges {
		revocations = append(revocations, queue.RevokedReferral{
			ReferrerID: edge.ReferrerID,
			Delta:      -edge.PointsAwarded,
		})
	}
	return revocations
}
