package service

import (
	"context"
	"strings"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/models"

	"gorm.io/gorm"
)

// 评价分级阈值
const (
	reviewRatingMin      = 1
	reviewRatingMax      = 5
	positiveReviewRating = 4
	negativeReviewRating = 2
)

type reviewSubmission struct {
	reviewerID uint
	rating     int
	content    string
	comment    *models.Comment
}

// ReviewEvents 评分对应的信用事件，3 分为中评不计
func ReviewEvents(rating int) CreditEvents {
	return CreditEvents{
		PositiveReview: rating >= positiveReviewRating,
		NegativeReview: rating <= negativeReviewRating,
	}
}

// SubmitReview 雇主提交评价：COMPLETED -> REVIEWED，写入评价并按评分调整服务方信用
func (s *OrderService) SubmitReview(ctx context.Context, orderID, reviewerID uint, rating int, content string) (*models.Order, *models.Comment, error) {
	if reviewerID == 0 {
		return nil, nil, validationErr("reviewer_id", "must be positive")
	}
	if rating < reviewRatingMin || rating > reviewRatingMax {
		return nil, nil, validationErr("rating", "must be between 1 and 5")
	}
	review := &reviewSubmission{
		reviewerID: reviewerID,
		rating:     rating,
		content:    strings.TrimSpace(content),
	}
	order, err := s.transition(ctx, transitionRequest{
		orderID: orderID,
		target:  constants.OrderStatusReviewed,
		actorID: reviewerID,
		reason:  "submit_review",
		review:  review,
	})
	if err != nil {
		return nil, nil, err
	}
	return order, review.comment, nil
}

func (s *OrderService) recordReview(tx *gorm.DB, order *models.Order, review *reviewSubmission) (bool, error) {
	if order.EmployerID != review.reviewerID {
		return false, validationErr("reviewer_id", "only the employer can review the order")
	}
	if s.commentRepo == nil {
		return false, conflictErr("comment", "review storage unavailable")
	}
	commentRepo := s.commentRepo.WithTx(tx)
	exists, err := commentRepo.HasReview(order.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, conflictErr("comment", "order already reviewed")
	}
	rating := review.rating
	comment := &models.Comment{
		OrderID:  order.ID,
		UserID:   review.reviewerID,
		Content:  review.content,
		Rating:   &rating,
		IsReview: true,
	}
	if err := commentRepo.Create(comment); err != nil {
		return false, err
	}
	review.comment = comment

	events := ReviewEvents(rating)
	if events.Empty() {
		return false, nil
	}
	if _, err := s.applyCredit(tx, order.ProviderID, events); err != nil {
		return false, err
	}
	return true, nil
}
