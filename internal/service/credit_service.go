package service

import (
	"context"
	"time"

	"github.com/skill-exchange/internal/logger"
	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 信用事件分值
var (
	creditDeltaOrderCompleted = decimal.NewFromInt(2)
	creditDeltaPositiveReview = decimal.NewFromInt(3)
	creditDeltaNegativeReview = decimal.NewFromInt(-5)
	creditDeltaCancelPenalty  = decimal.NewFromInt(-3)

	creditScoreMin = decimal.Zero
	creditScoreMax = decimal.NewFromInt(100)
)

const maxRankingPageSize = 100

// CreditEvents 一次信用变更携带的事件，可同时触发多个
type CreditEvents struct {
	OrderCompleted bool `json:"order_completed"`
	PositiveReview bool `json:"positive_review"`
	NegativeReview bool `json:"negative_review"`
	CancelPenalty  bool `json:"cancel_penalty"`
}

// Empty 是否未携带任何事件
func (e CreditEvents) Empty() bool {
	return !e.OrderCompleted && !e.PositiveReview && !e.NegativeReview && !e.CancelPenalty
}

// CreditLevel 信用等级展示信息
type CreditLevel struct {
	Level string `json:"level"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

var creditLevels = []struct {
	min   decimal.Decimal
	level CreditLevel
}{
	{min: decimal.NewFromInt(90), level: CreditLevel{Level: "excellent", Name: "优秀", Color: "#52c41a"}},
	{min: decimal.NewFromInt(80), level: CreditLevel{Level: "good", Name: "良好", Color: "#1890ff"}},
	{min: decimal.NewFromInt(70), level: CreditLevel{Level: "average", Name: "一般", Color: "#faad14"}},
	{min: decimal.NewFromInt(60), level: CreditLevel{Level: "poor", Name: "较差", Color: "#fa8c16"}},
}

var creditLevelBad = CreditLevel{Level: "bad", Name: "差", Color: "#f5222d"}

// CalcCreditLevel 根据分数计算信用等级
func CalcCreditLevel(score decimal.Decimal) CreditLevel {
	for _, item := range creditLevels {
		if score.GreaterThanOrEqual(item.min) {
			return item.level
		}
	}
	return creditLevelBad
}

// ClampScore 分数截断到 [0,100] 并保留 1 位小数
func ClampScore(score decimal.Decimal) decimal.Decimal {
	if score.LessThan(creditScoreMin) {
		return creditScoreMin
	}
	if score.GreaterThan(creditScoreMax) {
		return creditScoreMax
	}
	return score.Round(1)
}

// applyCreditEvents 累加事件分值后统一截断，并更新计数器
func applyCreditEvents(credit *models.UserCredit, events CreditEvents, now time.Time) {
	delta := decimal.Zero
	if events.OrderCompleted {
		delta = delta.Add(creditDeltaOrderCompleted)
		credit.TotalOrders++
		credit.CompletedOrders++
	}
	if events.PositiveReview {
		delta = delta.Add(creditDeltaPositiveReview)
		credit.PositiveReviews++
	}
	if events.NegativeReview {
		delta = delta.Add(creditDeltaNegativeReview)
		credit.NegativeReviews++
	}
	if events.CancelPenalty {
		delta = delta.Add(creditDeltaCancelPenalty)
	}
	credit.CreditScore = ClampScore(credit.CreditScore.Add(delta))
	credit.UpdatedAt = now
}

func defaultCredit(userID uint) *models.UserCredit {
	return &models.UserCredit{
		UserID:      userID,
		CreditScore: models.DefaultCreditScore,
	}
}

// CreditRecord 信用档案及派生等级
type CreditRecord struct {
	models.UserCredit
	Score       float64     `json:"credit_score"`
	CreditLevel CreditLevel `json:"credit_level"`
}

func newCreditRecord(credit *models.UserCredit) *CreditRecord {
	if credit == nil {
		return nil
	}
	return &CreditRecord{
		UserCredit:  *credit,
		Score:       credit.CreditScore.Round(1).InexactFloat64(),
		CreditLevel: CalcCreditLevel(credit.CreditScore),
	}
}

// CreditRankingQuery 信用排行查询参数
type CreditRankingQuery struct {
	MinOrders int64
	MinScore  float64
	Page      int
	PageSize  int
}

// CreditRankItem 排行榜条目
type CreditRankItem struct {
	Rank            int         `json:"rank"`
	UserID          uint        `json:"user_id"`
	Username        string      `json:"username"`
	Score           float64     `json:"credit_score"`
	TotalOrders     int64       `json:"total_orders"`
	CompletedOrders int64       `json:"completed_orders"`
	PositiveReviews int64       `json:"positive_reviews"`
	NegativeReviews int64       `json:"negative_reviews"`
	CreditLevel     CreditLevel `json:"credit_level"`
}

// CreditDistribution 信用分布桶
type CreditDistribution struct {
	Level string `json:"level"`
	Name  string `json:"name"`
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// CreditStats 信用统计
type CreditStats struct {
	TotalUsers   int64                `json:"total_users"`
	ActiveUsers  int64                `json:"active_users"`
	AvgScore     float64              `json:"avg_score"`
	Distribution []CreditDistribution `json:"distribution"`
}

// CreditStatsCache 信用统计缓存
type CreditStatsCache interface {
	GetCreditStats(ctx context.Context, dest interface{}) (bool, error)
	SetCreditStats(ctx context.Context, value interface{}, ttl time.Duration) error
	InvalidateCreditStats(ctx context.Context) error
}

// CreditEventApplier 订单流转在事务内调用的信用变更入口
type CreditEventApplier interface {
	ApplyEvents(tx *gorm.DB, userID uint, events CreditEvents) (*models.UserCredit, error)
	InvalidateStats(ctx context.Context)
}

// CreditService 信用评分服务
type CreditService struct {
	creditRepo repository.CreditRepository
	userRepo   repository.UserRepository
	statsCache CreditStatsCache
	statsTTL   time.Duration
}

// NewCreditService 创建信用服务
func NewCreditService(creditRepo repository.CreditRepository, userRepo repository.UserRepository, statsCache CreditStatsCache, statsTTL time.Duration) *CreditService {
	return &CreditService{
		creditRepo: creditRepo,
		userRepo:   userRepo,
		statsCache: statsCache,
		statsTTL:   statsTTL,
	}
}

// GetUserCredit 获取用户信用，档案不存在时按默认值创建
func (s *CreditService) GetUserCredit(ctx context.Context, userID uint) (*CreditRecord, error) {
	if userID == 0 {
		return nil, validationErr("user_id", "must be positive")
	}
	repo := s.creditRepo.WithContext(ctx)
	credit, err := repo.GetByUserID(userID)
	if err != nil {
		return nil, classifyDBError("get_user_credit", "user_credit", err)
	}
	if credit != nil {
		return newCreditRecord(credit), nil
	}

	user, err := s.userRepo.WithContext(ctx).GetByID(userID)
	if err != nil {
		return nil, classifyDBError("get_user", "user", err)
	}
	if user == nil {
		return nil, notFoundErr("user", userID)
	}
	if err := repo.CreateIfAbsent(defaultCredit(userID)); err != nil {
		return nil, classifyDBError("create_user_credit", "user_credit", err)
	}
	credit, err = repo.GetByUserID(userID)
	if err != nil {
		return nil, classifyDBError("get_user_credit", "user_credit", err)
	}
	if credit == nil {
		return nil, notFoundErr("user_credit", userID)
	}
	s.InvalidateStats(ctx)
	return newCreditRecord(credit), nil
}

// UpdateUserCredit 对已有档案应用信用事件
func (s *CreditService) UpdateUserCredit(ctx context.Context, userID uint, events CreditEvents) (*CreditRecord, error) {
	if userID == 0 {
		return nil, validationErr("user_id", "must be positive")
	}
	var updated *models.UserCredit
	err := s.creditRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.creditRepo.WithTx(tx)
		credit, err := repo.GetByUserIDForUpdate(userID)
		if err != nil {
			return err
		}
		if credit == nil {
			return notFoundErr("user_credit", userID)
		}
		applyCreditEvents(credit, events, time.Now())
		if err := repo.Save(credit); err != nil {
			return err
		}
		updated = credit
		return nil
	})
	if err != nil {
		return nil, classifyDBError("update_user_credit", "user_credit", err)
	}
	s.InvalidateStats(ctx)
	logger.Ctx(ctx).Infow("credit_updated",
		"user_id", userID,
		"credit_score", updated.CreditScore.String(),
		"events", events,
	)
	return newCreditRecord(updated), nil
}

// ApplyEvents 在调用方事务内锁定并更新信用档案，档案不存在时先创建
func (s *CreditService) ApplyEvents(tx *gorm.DB, userID uint, events CreditEvents) (*models.UserCredit, error) {
	if userID == 0 {
		return nil, validationErr("user_id", "must be positive")
	}
	repo := s.creditRepo.WithTx(tx)
	credit, err := repo.GetByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if credit == nil {
		if err := repo.CreateIfAbsent(defaultCredit(userID)); err != nil {
			return nil, err
		}
		credit, err = repo.GetByUserIDForUpdate(userID)
		if err != nil {
			return nil, err
		}
		if credit == nil {
			return nil, notFoundErr("user_credit", userID)
		}
	}
	if events.Empty() {
		return credit, nil
	}
	applyCreditEvents(credit, events, time.Now())
	if err := repo.Save(credit); err != nil {
		return nil, err
	}
	return credit, nil
}

// InvalidateStats 清除信用统计缓存
func (s *CreditService) InvalidateStats(ctx context.Context) {
	if s.statsCache == nil {
		return
	}
	if err := s.statsCache.InvalidateCreditStats(ctx); err != nil {
		logger.Warnw("credit_stats_cache_invalidate_failed", "error", err)
	}
}

// GetCreditRanking 信用排行
func (s *CreditService) GetCreditRanking(ctx context.Context, query CreditRankingQuery) ([]CreditRankItem, int64, error) {
	page, pageSize := normalizeRankingPage(query.Page, query.PageSize)
	minOrders := query.MinOrders
	if minOrders < 0 {
		minOrders = 0
	}
	minScore := decimal.NewFromFloat(query.MinScore)
	if minScore.IsNegative() {
		minScore = decimal.Zero
	}

	rows, total, err := s.creditRepo.WithContext(ctx).Ranking(repository.CreditRankingFilter{
		MinOrders: minOrders,
		MinScore:  minScore,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, 0, classifyDBError("credit_ranking", "user_credit", err)
	}

	offset := (page - 1) * pageSize
	items := make([]CreditRankItem, 0, len(rows))
	for i, row := range rows {
		items = append(items, CreditRankItem{
			Rank:            offset + i + 1,
			UserID:          row.UserID,
			Username:        row.Username,
			Score:           row.CreditScore.Round(1).InexactFloat64(),
			TotalOrders:     row.TotalOrders,
			CompletedOrders: row.CompletedOrders,
			PositiveReviews: row.PositiveReviews,
			NegativeReviews: row.NegativeReviews,
			CreditLevel:     CalcCreditLevel(row.CreditScore),
		})
	}
	return items, total, nil
}

func normalizeRankingPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxRankingPageSize {
		pageSize = maxRankingPageSize
	}
	return page, pageSize
}

// GetCreditStats 信用统计，启用缓存时优先读缓存
func (s *CreditService) GetCreditStats(ctx context.Context) (*CreditStats, error) {
	if s.statsCache != nil {
		var cached CreditStats
		hit, err := s.statsCache.GetCreditStats(ctx, &cached)
		if err != nil {
			logger.Warnw("credit_stats_cache_get_failed", "error", err)
		}
		if hit {
			return &cached, nil
		}
	}

	row, err := s.creditRepo.WithContext(ctx).Stats()
	if err != nil {
		return nil, classifyDBError("credit_stats", "user_credit", err)
	}
	stats := &CreditStats{
		TotalUsers:  row.TotalUsers,
		ActiveUsers: row.ActiveUsers,
		Distribution: []CreditDistribution{
			{Level: "excellent", Name: "优秀", Range: "90-100", Count: row.Excellent},
			{Level: "good", Name: "良好", Range: "80-89", Count: row.Good},
			{Level: "average", Name: "一般", Range: "70-79", Count: row.Average},
			{Level: "poor", Name: "较差", Range: "60-69", Count: row.Poor},
			{Level: "bad", Name: "差", Range: "0-59", Count: row.Bad},
		},
	}
	if row.AvgScore.Valid {
		stats.AvgScore = row.AvgScore.Decimal.Round(2).InexactFloat64()
	}

	if s.statsCache != nil {
		if err := s.statsCache.SetCreditStats(ctx, stats, s.statsTTL); err != nil {
			logger.Warnw("credit_stats_cache_set_failed", "error", err)
		}
	}
	return stats, nil
}
