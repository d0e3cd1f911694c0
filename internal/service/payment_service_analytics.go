package service

import (
	"context"
	"strconv"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/repository"
)

const (
	defaultDailyStatsDays = 30
	maxDailyStatsDays     = 366
)

// PaymentStatusGroup 按状态分组统计
type PaymentStatusGroup struct {
	repository.PaymentGroupStat
	StatusName string `json:"status_name"`
}

// PaymentSummary 支付汇总
type PaymentSummary struct {
	ByStatus []PaymentStatusGroup          `json:"by_status"`
	ByMethod []repository.PaymentGroupStat `json:"by_method"`
	Today    repository.PaymentAggregate   `json:"today"`
	Week     repository.PaymentAggregate   `json:"week"`
	Month    repository.PaymentAggregate   `json:"month"`
	Total    repository.PaymentAggregate   `json:"total"`
}

// DailyStatsQuery 每日统计查询：指定区间或最近 N 天
type DailyStatsQuery struct {
	From *time.Time
	To   *time.Time
	Days int
}

// GetPaymentSummary 支付汇总统计
func (s *PaymentService) GetPaymentSummary(ctx context.Context, now time.Time) (*PaymentSummary, error) {
	repo := s.paymentRepo.WithContext(ctx)
	byStatus, err := repo.GroupByStatus()
	if err != nil {
		return nil, classifyDBError("payment_summary", "payment", err)
	}
	byMethod, err := repo.GroupByMethod()
	if err != nil {
		return nil, classifyDBError("payment_summary", "payment", err)
	}

	summary := &PaymentSummary{
		ByStatus: make([]PaymentStatusGroup, 0, len(byStatus)),
		ByMethod: byMethod,
	}
	for _, row := range byStatus {
		group := PaymentStatusGroup{PaymentGroupStat: row}
		if code, err := strconv.Atoi(row.Key); err == nil {
			group.StatusName = constants.PaymentStatus(code).Label()
		}
		summary.ByStatus = append(summary.ByStatus, group)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	windows := []struct {
		from *time.Time
		dest *repository.PaymentAggregate
	}{
		{from: &dayStart, dest: &summary.Today},
		{from: timePtr(dayStart.AddDate(0, 0, -6)), dest: &summary.Week},
		{from: timePtr(dayStart.AddDate(0, 0, -29)), dest: &summary.Month},
		{from: nil, dest: &summary.Total},
	}
	for _, window := range windows {
		agg, err := repo.Aggregate(window.from, nil)
		if err != nil {
			return nil, classifyDBError("payment_summary", "payment", err)
		}
		*window.dest = agg
	}
	return summary, nil
}

// GetDailyStats 每日支付统计
func (s *PaymentService) GetDailyStats(ctx context.Context, query DailyStatsQuery, now time.Time) ([]repository.PaymentDailyStat, error) {
	from, to, err := resolveDailyRange(query, now)
	if err != nil {
		return nil, err
	}
	rows, err := s.paymentRepo.WithContext(ctx).DailyStats(from, to)
	if err != nil {
		return nil, classifyDBError("payment_daily_stats", "payment", err)
	}
	return rows, nil
}

// resolveDailyRange 返回 [from, to) 区间
func resolveDailyRange(query DailyStatsQuery, now time.Time) (time.Time, time.Time, error) {
	if query.From != nil || query.To != nil {
		if query.From == nil || query.To == nil {
			return time.Time{}, time.Time{}, validationErr("date_range", "start and end must be given together")
		}
		from := truncateDay(*query.From)
		to := truncateDay(*query.To).AddDate(0, 0, 1)
		if !from.Before(to) {
			return time.Time{}, time.Time{}, validationErr("date_range", "start must not be after end")
		}
		if to.Sub(from) > maxDailyStatsDays*24*time.Hour {
			return time.Time{}, time.Time{}, validationErr("date_range", "range too large")
		}
		return from, to, nil
	}
	days := query.Days
	if days <= 0 {
		days = defaultDailyStatsDays
	}
	if days > maxDailyStatsDays {
		days = maxDailyStatsDays
	}
	to := truncateDay(now).AddDate(0, 0, 1)
	return to.AddDate(0, 0, -days), to, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func timePtr(t time.Time) *time.Time {
	return &t
}
