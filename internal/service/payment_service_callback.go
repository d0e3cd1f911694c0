package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/logger"
	"github.com/skill-exchange/internal/models"

	"gorm.io/gorm"
)

// PaymentCallbackInput 第三方支付回调
type PaymentCallbackInput struct {
	Channel     string
	OutTradeNo  string // 即 payment_no
	TradeNo     string
	TradeStatus string
	Sign        string
}

// SignCallback 计算回调签名：hex(HMAC-SHA256(secret, out_trade_no|trade_status|trade_no))
func SignCallback(secret, outTradeNo, tradeStatus, tradeNo string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join([]string{outTradeNo, tradeStatus, tradeNo}, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

func isCallbackChannel(channel string) bool {
	switch channel {
	case constants.PaymentMethodAlipay, constants.PaymentMethodWechat, constants.PaymentMethodBank:
		return true
	}
	return false
}

// HandleCallback 处理支付回调：成功则确认订单支付，关闭或失败则结束待支付记录
func (s *PaymentService) HandleCallback(ctx context.Context, input PaymentCallbackInput) (*models.Payment, error) {
	channel := strings.ToLower(strings.TrimSpace(input.Channel))
	if !isCallbackChannel(channel) {
		return nil, validationErr("channel", "unsupported callback channel")
	}
	outTradeNo := strings.TrimSpace(input.OutTradeNo)
	tradeNo := strings.TrimSpace(input.TradeNo)
	tradeStatus := strings.TrimSpace(input.TradeStatus)
	if outTradeNo == "" {
		return nil, validationErr("out_trade_no", "is required")
	}
	expected := SignCallback(s.callbackSecret, outTradeNo, tradeStatus, tradeNo)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(input.Sign)))) {
		logger.Ctx(ctx).Warnw("payment_callback_sign_invalid", "channel", channel, "out_trade_no", outTradeNo)
		return nil, validationErr("sign", "signature mismatch")
	}

	payment, err := s.paymentRepo.WithContext(ctx).GetByPaymentNo(outTradeNo)
	if err != nil {
		return nil, classifyDBError("payment_callback", "payment", err)
	}
	if payment == nil {
		return nil, notFoundErr("payment", outTradeNo)
	}

	switch tradeStatus {
	case constants.TradeStatusSuccess:
		return s.handleCallbackSuccess(ctx, channel, payment, tradeNo)
	case constants.TradeStatusClosed:
		return s.handleCallbackUnpaid(ctx, channel, payment.PaymentNo, constants.PaymentStatusCancelled)
	case constants.TradeStatusFailed:
		return s.handleCallbackUnpaid(ctx, channel, payment.PaymentNo, constants.PaymentStatusFailed)
	}
	return nil, validationErr("trade_status", "unsupported trade status")
}

func (s *PaymentService) handleCallbackSuccess(ctx context.Context, channel string, payment *models.Payment, tradeNo string) (*models.Payment, error) {
	if tradeNo == "" {
		return nil, validationErr("trade_no", "is required")
	}
	if payment.Status == constants.PaymentStatusSuccess && payment.TradeNo == tradeNo {
		logger.Ctx(ctx).Infow("payment_callback_duplicate", "payment_id", payment.ID, "trade_no", tradeNo)
		return payment, nil
	}
	if s.confirmer == nil {
		return nil, conflictErr("payment", "order confirmation unavailable")
	}
	if _, err := s.confirmer.ConfirmPaymentByCallback(ctx, payment.OrderID, payment.ID, tradeNo, channel); err != nil {
		return nil, err
	}
	updated, err := s.paymentRepo.WithContext(ctx).GetByID(payment.ID)
	if err != nil {
		return nil, classifyDBError("payment_callback", "payment", err)
	}
	logger.Ctx(ctx).Infow("payment_callback_confirmed",
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
		"channel", channel,
		"trade_no", tradeNo,
	)
	return updated, nil
}

// handleCallbackUnpaid 待支付记录转为取消或失败，订单保持待支付以便重新发起支付
func (s *PaymentService) handleCallbackUnpaid(ctx context.Context, channel, paymentNo string, target constants.PaymentStatus) (*models.Payment, error) {
	var payment *models.Payment
	err := s.paymentRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		current, err := repo.GetByPaymentNoForUpdate(paymentNo)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundErr("payment", paymentNo)
		}
		payment = current
		if current.Status != constants.PaymentStatusPending {
			return nil
		}
		now := time.Now()
		ok, err := repo.UpdateStatus(current.ID, constants.PaymentStatusPending, target, map[string]interface{}{"updated_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return conflictErr("payment", "payment status changed concurrently")
		}
		current.Status = target
		current.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, classifyDBError("payment_callback", "payment", err)
	}
	logger.Ctx(ctx).Infow("payment_callback_unpaid", "payment_id", payment.ID, "channel", channel, "payment_status", payment.Status.Label())
	return payment, nil
}
