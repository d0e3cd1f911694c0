package cache

import (
	"context"
	"time"
)

// CreditStatsKey 信用统计缓存键
const CreditStatsKey = "credit:stats"

// GetCreditStats 读取信用统计缓存
func (s *Store) GetCreditStats(ctx context.Context, dest interface{}) (bool, error) {
	return s.GetJSON(ctx, CreditStatsKey, dest)
}

// SetCreditStats 写入信用统计缓存
func (s *Store) SetCreditStats(ctx context.Context, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.SetJSON(ctx, CreditStatsKey, value, ttl)
}

// InvalidateCreditStats 信用变更后清除统计缓存
func (s *Store) InvalidateCreditStats(ctx context.Context) error {
	return s.Del(ctx, CreditStatsKey)
}
