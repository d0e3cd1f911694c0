package service

import (
	"context"
	"time"

	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/queue"
	"github.com/skill-exchange/internal/repository"
)

// OrderAuditService 订单流转审计日志
type OrderAuditService struct {
	logRepo repository.TransitionLogRepository
}

// NewOrderAuditService 创建审计服务
func NewOrderAuditService(logRepo repository.TransitionLogRepository) *OrderAuditService {
	return &OrderAuditService{logRepo: logRepo}
}

// Record 写入一条流转记录
func (s *OrderAuditService) Record(ctx context.Context, payload queue.OrderTransitionAuditPayload) (*models.OrderTransitionLog, error) {
	if payload.OrderID == 0 {
		return nil, validationErr("order_id", "must be positive")
	}
	occurred := payload.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	entry := &models.OrderTransitionLog{
		OrderID:    payload.OrderID,
		FromStatus: payload.FromStatus,
		ToStatus:   payload.ToStatus,
		ActorID:    payload.ActorID,
		Reason:     payload.Reason,
		RequestID:  payload.RequestID,
		OccurredAt: occurred,
	}
	if err := s.logRepo.WithContext(ctx).Create(entry); err != nil {
		return nil, classifyDBError("record_transition", "order_transition_log", err)
	}
	return entry, nil
}

// List 查询流转记录，orderID 为 0 时返回全部
func (s *OrderAuditService) List(ctx context.Context, orderID uint, page, pageSize int) ([]models.OrderTransitionLog, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	logs, total, err := s.logRepo.WithContext(ctx).ListByOrder(orderID, page, pageSize)
	if err != nil {
		return nil, 0, classifyDBError("list_transitions", "order_transition_log", err)
	}
	return logs, total, nil
}
