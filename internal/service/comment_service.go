package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/repository"
)

const maxCommentLength = 2000

// CommentService 订单评论服务
type CommentService struct {
	commentRepo repository.CommentRepository
	orderRepo   repository.OrderRepository
}

// NewCommentService 创建评论服务
func NewCommentService(commentRepo repository.CommentRepository, orderRepo repository.OrderRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, orderRepo: orderRepo}
}

// CreateCommentInput 发表评论输入
type CreateCommentInput struct {
	OrderID uint
	UserID  uint
	Content string
}

func normalizeCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", validationErr("content", "is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return "", validationErr("content", "too long")
	}
	return content, nil
}

// CreateComment 订单当事人发表评论
func (s *CommentService) CreateComment(ctx context.Context, input CreateCommentInput) (*models.Comment, error) {
	content, err := normalizeCommentContent(input.Content)
	if err != nil {
		return nil, err
	}
	if input.OrderID == 0 {
		return nil, validationErr("order_id", "must be positive")
	}
	order, err := s.orderRepo.WithContext(ctx).GetByID(input.OrderID)
	if err != nil {
		return nil, classifyDBError("get_order", "order", err)
	}
	if order == nil {
		return nil, notFoundErr("order", input.OrderID)
	}
	if !order.IsParty(input.UserID) {
		return nil, validationErr("user_id", "only order parties can comment")
	}
	comment := &models.Comment{
		OrderID: input.OrderID,
		UserID:  input.UserID,
		Content: content,
	}
	if err := s.commentRepo.WithContext(ctx).Create(comment); err != nil {
		return nil, classifyDBError("create_comment", "comment", err)
	}
	return comment, nil
}

// GetComment 获取评论及回复
func (s *CommentService) GetComment(ctx context.Context, commentID uint) (*models.Comment, error) {
	if commentID == 0 {
		return nil, validationErr("comment_id", "must be positive")
	}
	comment, err := s.commentRepo.WithContext(ctx).GetByID(commentID)
	if err != nil {
		return nil, classifyDBError("get_comment", "comment", err)
	}
	if comment == nil {
		return nil, notFoundErr("comment", commentID)
	}
	return comment, nil
}

// ListComments 评论列表，可按订单或用户筛选
func (s *CommentService) ListComments(ctx context.Context, filter repository.CommentListFilter) ([]models.Comment, int64, error) {
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	comments, total, err := s.commentRepo.WithContext(ctx).List(filter)
	if err != nil {
		return nil, 0, classifyDBError("list_comments", "comment", err)
	}
	return comments, total, nil
}

// UpdateComment 作者修改评论内容
func (s *CommentService) UpdateComment(ctx context.Context, commentID, userID uint, content string) (*models.Comment, error) {
	content, err := normalizeCommentContent(content)
	if err != nil {
		return nil, err
	}
	comment, err := s.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, validationErr("user_id", "only the author can edit the comment")
	}
	if _, err := s.commentRepo.WithContext(ctx).UpdateContent(commentID, content); err != nil {
		return nil, classifyDBError("update_comment", "comment", err)
	}
	comment.Content = content
	return comment, nil
}

// DeleteComment 作者或管理员删除评论，评价不可删除
func (s *CommentService) DeleteComment(ctx context.Context, commentID, userID uint, isAdmin bool) error {
	comment, err := s.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if !isAdmin && comment.UserID != userID {
		return validationErr("user_id", "only the author can delete the comment")
	}
	if comment.IsReview && !isAdmin {
		return conflictErr("comment", "order reviews cannot be deleted")
	}
	if _, err := s.commentRepo.WithContext(ctx).SoftDelete(commentID); err != nil {
		return classifyDBError("delete_comment", "comment", err)
	}
	return nil
}

// ReplyComment 回复评论，仅订单当事人可回复
func (s *CommentService) ReplyComment(ctx context.Context, commentID, userID uint, content string) (*models.CommentReply, error) {
	content, err := normalizeCommentContent(content)
	if err != nil {
		return nil, err
	}
	comment, err := s.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.WithContext(ctx).GetByID(comment.OrderID)
	if err != nil {
		return nil, classifyDBError("get_order", "order", err)
	}
	if !order.IsParty(userID) {
		return nil, validationErr("user_id", "only order parties can reply")
	}
	reply := &models.CommentReply{
		CommentID: commentID,
		UserID:    userID,
		Content:   content,
	}
	if err := s.commentRepo.WithContext(ctx).CreateReply(reply); err != nil {
		return nil, classifyDBError("create_reply", "comment_reply", err)
	}
	return reply, nil
}
