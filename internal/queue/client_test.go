package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/skill-exchange/internal/config"
	"github.com/skill-exchange/internal/constants"
)

func TestDisabledClientIsNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("disabled client should report disabled")
	}
	if err := client.EnqueueOrderTransitionAudit(OrderTransitionAuditPayload{OrderID: 1}); err != nil {
		t.Fatalf("disabled enqueue audit should be noop, got %v", err)
	}
	if err := client.EnqueueOrderTimeoutCancel(OrderTimeoutCancelPayload{OrderID: 1}, time.Minute); err != nil {
		t.Fatalf("disabled enqueue timeout should be noop, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client failed: %v", err)
	}
}

func TestOrderTransitionAuditTaskPayload(t *testing.T) {
	occurred := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	task, err := NewOrderTransitionAuditTask(OrderTransitionAuditPayload{
		OrderID:    9,
		FromStatus: constants.OrderStatusPaid,
		ToStatus:   constants.OrderStatusCancelled,
		ActorID:    3,
		Reason:     "cancel",
		RequestID:  "req-1",
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskOrderTransitionAudit {
		t.Fatalf("task type want %s got %s", TaskOrderTransitionAudit, task.Type())
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(task.Payload(), &raw); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if raw["from"].(float64) != 2 || raw["to"].(float64) != 6 || raw["request_id"] != "req-1" {
		t.Fatalf("unexpected payload: %v", raw)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("default concurrency want 10 got %d", cfg.Concurrency)
	}
	if cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("default queue weight want 1 got %v", cfg.Queues)
	}
}
