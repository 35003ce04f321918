package service

import "errors"

// 服务层哨兵错误，处理器用 errors.Is 分发。
// 存储失败以包装错误原样向上传递，调用方可安全重试（写路径全部幂等）。
var (
	// ErrNotFound 参与者或社区不存在
	ErrNotFound = errors.New("record not found")
	// ErrSelfReferral 邀请码属于注册者本人
	ErrSelfReferral = errors.New("self referral rejected")
	// ErrReferralCodeInvalid 邀请码格式非法
	ErrReferralCodeInvalid = errors.New("referral code malformed")
	// ErrTooSoon 任务完成早于最小间隔
	ErrTooSoon = errors.New("task completed too soon")
	// ErrConflict 条件更新竞争失败，可重试
	ErrConflict = errors.New("concurrent update conflict")
	// ErrCodeExhausted 邀请码生成重试次数耗尽
	ErrCodeExhausted = errors.New("referral code generation exhausted")
	// ErrCommunityDisabled 社区活动未开启
	ErrCommunityDisabled = errors.New("community contest disabled")
)
