package public

import (
	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/repository"
	"github.com/skill-exchange/internal/service"

	"github.com/gin-gonic/gin"
)

// CommentRequest 评论内容
type CommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// CreateCommentRequest 发表评论请求
type CreateCommentRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Content string `json:"content" binding:"required,max=2000"`
}

// CreateComment 订单当事人发表评论
func (h *Handler) CreateComment(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	var req CreateCommentRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	comment, err := h.CommentService.CreateComment(c.Request.Context(), service.CreateCommentInput{
		OrderID: req.OrderID,
		UserID:  uid,
		Content: req.Content,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "create comment failed")
		return
	}
	response.SuccessWithMsg(c, "comment created", comment)
}

// ListComments 评论列表，支持 order_id/user_id 筛选
func (h *Handler) ListComments(c *gin.Context) {
	orderID, ok := shared.ParseUintQuery(c, "order_id")
	if !ok {
		return
	}
	userID, ok := shared.ParseUintQuery(c, "user_id")
	if !ok {
		return
	}
	h.respondComments(c, orderID, userID)
}

// ListOrderComments 订单下的评论
func (h *Handler) ListOrderComments(c *gin.Context) {
	orderID, ok := shared.ParseUintParam(c, "orderId")
	if !ok {
		return
	}
	h.respondComments(c, orderID, 0)
}

// ListUserComments 用户发表的评论
func (h *Handler) ListUserComments(c *gin.Context) {
	userID, ok := shared.ParseUintParam(c, "userId")
	if !ok {
		return
	}
	h.respondComments(c, 0, userID)
}

func (h *Handler) respondComments(c *gin.Context, orderID, userID uint) {
	page, pageSize := shared.ParsePagination(c)
	comments, total, err := h.CommentService.ListComments(c.Request.Context(), repository.CommentListFilter{
		Page:     page,
		PageSize: pageSize,
		OrderID:  orderID,
		UserID:   userID,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "fetch comments failed")
		return
	}
	response.SuccessWithPage(c, comments, response.BuildPagination(page, pageSize, total))
}

// GetComment 评论详情
func (h *Handler) GetComment(c *gin.Context) {
	commentID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	comment, err := h.CommentService.GetComment(c.Request.Context(), commentID)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch comment failed")
		return
	}
	response.Success(c, comment)
}

// UpdateComment 作者修改评论
func (h *Handler) UpdateComment(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	commentID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	comment, err := h.CommentService.UpdateComment(c.Request.Context(), commentID, uid, req.Content)
	if err != nil {
		shared.RespondServiceError(c, err, "update comment failed")
		return
	}
	response.SuccessWithMsg(c, "comment updated", comment)
}

// DeleteComment 删除评论，订单评价仅管理员可删
func (h *Handler) DeleteComment(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	commentID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.CommentService.DeleteComment(c.Request.Context(), commentID, uid, shared.IsAdmin(c)); err != nil {
		shared.RespondServiceError(c, err, "delete comment failed")
		return
	}
	response.SuccessWithMsg(c, "comment deleted", nil)
}

// ReplyComment 回复评论
func (h *Handler) ReplyComment(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	commentID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	reply, err := h.CommentService.ReplyComment(c.Request.Context(), commentID, uid, req.Content)
	if err != nil {
		shared.RespondServiceError(c, err, "reply comment failed")
		return
	}
	response.SuccessWithMsg(c, "reply created", reply)
}
