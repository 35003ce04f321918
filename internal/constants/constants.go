package constants

// 邀请边状态常量
const (
	ReferralEdgeStatusActive = "active"
	ReferralEdgeStatusLeft   = "left"
)

// 积分默认值常量
const (
	DefaultReferralPoints      = 2
	DefaultTaskPoints          = 3
	DefaultTaskMinDelaySeconds = 30
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 队列任务类型常量
const (
	TaskReferralAwarded     = "contest:referral_awarded"
	TaskTaskCompleted       = "contest:task_completed"
	TaskParticipantDeparted = "contest:participant_departed"
	TaskLeaderboardPublish  = "contest:leaderboard_publish"
)
