package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/invitearena/invitearena/internal/cache"
	"github.com/invitearena/invitearena/internal/constants"
	"github.com/invitearena/invitearena/internal/logger"
	"github.com/invitearena/invitearena/internal/models"
	"github.com/invitearena/invitearena/internal/queue"
	"github.com/invitearena/invitearena/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultCodeLength     = 8
	maxReferralCodeLength = 32
	codeCreateMaxRetry    = 8
	departureMarkerTTL    = 10 * time.Minute
	departureMarkerKeyFmt = "departed:%d:%d"
)

// 邀请码字母表：去掉易混淆的 0/O/1/I。
// 首位只用字母，保证生成的码不可能是纯数字，纯数字留给旧版外部ID兜底解析。
const (
	codeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeFirstAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// errReferrerDeparted 邀请人在解析后、归因提交前退出，整个事务回滚后放弃归因重建。
var errReferrerDeparted = errors.New("referrer departed before attribution commit")

// ContestService 参与者与邀请台账服务
type ContestService struct {
	participantRepo repository.ParticipantRepository
	edgeRepo        repository.ReferralEdgeRepository
	communityRepo   repository.CommunityRepository
	dedup           *cache.MemoryCache
	queueClient     *queue.Client
	referralPoints  int
	codeLength      int
}

// NewContestService 创建台账服务
func NewContestService(
	participantRepo repository.ParticipantRepository,
	edgeRepo repository.ReferralEdgeRepository,
	communityRepo repository.CommunityRepository,
	dedup *cache.MemoryCache,
	queueClient *queue.Client,
	referralPoints int,
	codeLength int,
) *ContestService {
	if referralPoints <= 0 {
		referralPoints = constants.DefaultReferralPoints
	}
	if codeLength <= 0 {
		codeLength = defaultCodeLength
	}
	return &ContestService{
		participantRepo: participantRepo,
		edgeRepo:        edgeRepo,
		communityRepo:   communityRepo,
		dedup:           dedup,
		queueClient:     queueClient,
		referralPoints:  referralPoints,
		codeLength:      codeLength,
	}
}

// RegisterInput 注册/回归输入
type RegisterInput struct {
	ExternalUserID int64
	CommunityID    int64
	DisplayName    string
	Username       string
	ReferralCode   string
	CommunityTitle string
}

// RegisterResult 注册/回归结果
type RegisterResult struct {
	Participant *models.Participant
	Created     bool
	Reactivated bool
	Referrer    *models.Participant // 归因成功时为加分后的邀请人
}

// DepartureResult 退出处理结果
type DepartureResult struct {
	Applied bool
	Revoked []queue.RevokedReferral
}

// RegisterOrActivate 注册新参与者或重新激活已退出的参与者
// 外部事件至少一次投递：重复注册对积分与边是空操作。
func (s *ContestService) RegisterOrActivate(input RegisterInput) (*RegisterResult, error) {
	if input.ExternalUserID == 0 || input.CommunityID == 0 {
		return nil, ErrNotFound
	}
	if err := s.ensureCommunity(input.CommunityID, input.CommunityTitle); err != nil {
		return nil, err
	}

	existing, err := s.participantRepo.GetByExternalID(input.CommunityID, input.ExternalUserID)
	if err != nil {
		return nil, err
	}
	switch Transition(StateOf(existing), MembershipEventRegister) {
	case ActionNone:
		return &RegisterResult{Participant: existing}, nil
	case ActionReactivate:
		return s.reactivate(existing, input)
	}

	referrer, err := s.resolveReferrer(input)
	if err != nil {
		return nil, err
	}
	return s.create(input, referrer)
}

// HandleDeparture 处理参与者退出
// 停用参与者并回收其名下有效入边的邀请积分；重复事件为空操作。
func (s *ContestService) HandleDeparture(communityID, externalUserID int64) (*DepartureResult, error) {
	participant, err := s.participantRepo.GetByExternalID(communityID, externalUserID)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrNotFound
	}
	if Transition(StateOf(participant), MembershipEventDepart) == ActionNone {
		return &DepartureResult{Applied: false}, nil
	}

	// 本地缓存只降噪，不做正确性判定；条件更新才是幂等保证。
	markerKey := fmt.Sprintf(departureMarkerKeyFmt, communityID, externalUserID)
	if s.dedup != nil {
		if _, hit := s.dedup.Get(markerKey); hit {
			return &DepartureResult{Applied: false}, nil
		}
	}

	now := time.Now()
	var revoked []queue.RevokedReferral
	applied := false
	err = s.participantRepo.Transaction(func(tx *gorm.DB) error {
		pRepo := s.participantRepo.WithTx(tx)
		eRepo := s.edgeRepo.WithTx(tx)

		ok, err := pRepo.Deactivate(participant.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// 并发退出事件抢先提交，整体空操作
			return nil
		}
		applied = true

		edges, err := eRepo.ListActiveByReferred(participant.ID)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			marked, err := eRepo.MarkLeft(edge.ID, now)
			if err != nil {
				return err
			}
			if !marked {
				continue
			}
			if err := pRepo.RevokeReferralAward(edge.ReferrerID, edge.PointsAwarded, now); err != nil {
				return err
			}
		}
		revoked = BuildRevocations(edges)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return &DepartureResult{Applied: false}, nil
	}

	if s.dedup != nil {
		s.dedup.Set(markerKey, struct{}{}, departureMarkerTTL)
	}
	if err := s.queueClient.EnqueueParticipantDeparted(queue.ParticipantDepartedPayload{
		EventID:          uuid.NewString(),
		CommunityID:      communityID,
		ParticipantID:    participant.ID,
		RevokedReferrals: revoked,
	}); err != nil {
		logger.Warnw("contest_departed_event_enqueue_failed",
			"participant_id", participant.ID, "error", err)
	}
	return &DepartureResult{Applied: true, Revoked: revoked}, nil
}

// GetStats 查询参与者当前台账
func (s *ContestService) GetStats(communityID, externalUserID int64) (*models.Participant, error) {
	participant, err := s.participantRepo.GetByExternalID(communityID, externalUserID)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrNotFound
	}
	return participant, nil
}

func (s *ContestService) reactivate(existing *models.Participant, input RegisterInput) (*RegisterResult, error) {
	now := time.Now()
	applied := false
	err := s.participantRepo.Transaction(func(tx *gorm.DB) error {
		ok, err := s.participantRepo.WithTx(tx).Reactivate(existing.ID, repository.ProfileUpdate{
			DisplayName: input.DisplayName,
			Username:    input.Username,
		}, now)
		applied = ok
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.dedup != nil {
		s.dedup.Del(fmt.Sprintf(departureMarkerKeyFmt, input.CommunityID, input.ExternalUserID))
	}
	reloaded, err := s.participantRepo.GetByID(existing.ID)
	if err != nil {
		return nil, err
	}
	if reloaded == nil {
		return nil, ErrNotFound
	}
	if !applied {
		// 条件更新落空：并发注册已激活则视为重复事件；
		// 仍不活跃说明又被并发退出抢了一手，让调用方重投本次事件。
		if !reloaded.IsActive {
			return nil, ErrConflict
		}
		return &RegisterResult{Participant: reloaded}, nil
	}
	return &RegisterResult{Participant: reloaded, Reactivated: true}, nil
}

// resolveReferrer 解析邀请人
// 先按邀请码精确匹配；纯数字且未命中时按旧版外部用户ID在同社区内兜底解析。
// 解析不到不算错误，自邀请必须显式拒绝。
func (s *ContestService) resolveReferrer(input RegisterInput) (*models.Participant, error) {
	code := strings.ToUpper(strings.TrimSpace(input.ReferralCode))
	if code == "" {
		return nil, nil
	}
	if len(code) > maxReferralCodeLength || !isCodeCharset(code) {
		return nil, ErrReferralCodeInvalid
	}

	referrer, err := s.participantRepo.GetByReferralCode(code)
	if err != nil {
		return nil, err
	}
	if referrer == nil && isAllDigits(code) {
		legacyID, parseErr := strconv.ParseInt(code, 10, 64)
		if parseErr == nil && legacyID > 0 {
			referrer, err = s.participantRepo.GetByExternalID(input.CommunityID, legacyID)
			if err != nil {
				return nil, err
			}
		}
	}
	if referrer == nil {
		return nil, nil
	}
	if referrer.ExternalUserID == input.ExternalUserID && referrer.CommunityID == input.CommunityID {
		return nil, ErrSelfReferral
	}
	if referrer.CommunityID != input.CommunityID || !referrer.IsActive {
		// 跨社区或已退出的邀请人不参与归因
		return nil, nil
	}
	return referrer, nil
}

// create 创建参与者并在同一事务内完成邀请归因
// 依赖唯一索引而非先查后插：并发创建同一参与者时败者取回胜者的行。
func (s *ContestService) create(input RegisterInput, referrer *models.Participant) (*RegisterResult, error) {
	now := time.Now()
	for attempt := 0; attempt < codeCreateMaxRetry; attempt++ {
		code, err := generateReferralCode(s.codeLength)
		if err != nil {
			return nil, err
		}
		participant := &models.Participant{
			ExternalUserID: input.ExternalUserID,
			CommunityID:    input.CommunityID,
			ReferralCode:   code,
			DisplayName:    strings.TrimSpace(input.DisplayName),
			Username:       strings.TrimSpace(input.Username),
			IsActive:       true,
			JoinedAt:       now,
		}
		if referrer != nil {
			referrerID := referrer.ID
			participant.ReferredByID = &referrerID
		}

		txErr := s.participantRepo.Transaction(func(tx *gorm.DB) error {
			pRepo := s.participantRepo.WithTx(tx)
			eRepo := s.edgeRepo.WithTx(tx)

			if err := pRepo.Create(participant); err != nil {
				return err
			}
			if referrer == nil {
				return nil
			}
			edge := &models.ReferralEdge{
				ReferrerID:     referrer.ID,
				ReferredUserID: participant.ID,
				CommunityID:    input.CommunityID,
				Status:         constants.ReferralEdgeStatusActive,
				PointsAwarded:  s.referralPoints,
				CreatedAt:      now,
			}
			if err := eRepo.Create(edge); err != nil {
				return err
			}
			awarded, err := pRepo.ApplyReferralAward(referrer.ID, s.referralPoints, now)
			if err != nil {
				return err
			}
			if !awarded {
				return errReferrerDeparted
			}
			return nil
		})
		if txErr == nil {
			return s.finishCreate(input, participant, referrer)
		}
		if errors.Is(txErr, errReferrerDeparted) {
			referrer = nil
			continue
		}
		if !isUniqueViolation(txErr) {
			return nil, txErr
		}

		// 唯一冲突有两种来源：参与者键（并发创建）或邀请码碰撞。
		winner, err := s.participantRepo.GetByExternalID(input.CommunityID, input.ExternalUserID)
		if err != nil {
			return nil, err
		}
		if winner != nil {
			if !winner.IsActive {
				return s.reactivate(winner, input)
			}
			return &RegisterResult{Participant: winner}, nil
		}
		// 邀请码碰撞，换码重试
	}
	return nil, ErrCodeExhausted
}

func (s *ContestService) finishCreate(input RegisterInput, participant *models.Participant, referrer *models.Participant) (*RegisterResult, error) {
	result := &RegisterResult{Participant: participant, Created: true}
	if referrer == nil {
		return result, nil
	}
	awarded, err := s.participantRepo.GetByID(referrer.ID)
	if err != nil {
		return nil, err
	}
	if awarded == nil {
		awarded = referrer
	}
	result.Referrer = awarded

	if err := s.queueClient.EnqueueReferralAwarded(queue.ReferralAwardedPayload{
		EventID:        uuid.NewString(),
		CommunityID:    input.CommunityID,
		ReferrerID:     awarded.ID,
		ReferredUserID: participant.ID,
		NewPointTotal:  awarded.Points,
	}); err != nil {
		logger.Warnw("contest_referral_event_enqueue_failed",
			"referrer_id", awarded.ID, "error", err)
	}
	return result, nil
}

// ensureCommunity 登记社区，活动关闭时拒绝注册
func (s *ContestService) ensureCommunity(chatID int64, title string) error {
	if s.communityRepo == nil {
		return nil
	}
	community, err := s.communityRepo.GetByChatID(chatID)
	if err != nil {
		return err
	}
	if community == nil {
		created := &models.Community{ChatID: chatID, Title: strings.TrimSpace(title), IsEnabled: true}
		if err := s.communityRepo.Create(created); err != nil {
			if isUniqueViolation(err) {
				return nil
			}
			return err
		}
		return nil
	}
	if !community.IsEnabled {
		return ErrCommunityDisabled
	}
	return nil
}

func generateReferralCode(length int) (string, error) {
	if length < 2 {
		length = defaultCodeLength
	}
	var builder strings.Builder
	builder.Grow(length)

	first, err := randomIndex(len(codeFirstAlphabet))
	if err != nil {
		return "", err
	}
	builder.WriteByte(codeFirstAlphabet[first])
	for i := 1; i < length; i++ {
		n, err := randomIndex(len(codeAlphabet))
		if err != nil {
			return "", err
		}
		builder.WriteByte(codeAlphabet[n])
	}
	return builder.String(), nil
}

func randomIndex(size int) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(size)))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// isCodeCharset 邀请码只允许字母和数字（大小写不敏感，已先行转大写）
func isCodeCharset(value string) bool {
	for _, r := range value {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func isAllDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
