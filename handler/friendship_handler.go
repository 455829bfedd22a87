package handler

import (
	"strconv"

	"notes_nest/middleware"
	"notes_nest/model"
	"notes_nest/service"
	"notes_nest/utils"

	"github.com/gin-gonic/gin"
)

type FriendshipHandler struct {
	friendSvc *service.FriendshipService
}

func NewFriendshipHandler(friendSvc *service.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friendSvc: friendSvc}
}

// SendRequest 发送好友请求
func (h *FriendshipHandler) SendRequest(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	var req model.FriendRequestCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	friendship, err := h.friendSvc.SendRequest(user.ID, req.AddresseeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, friendship)
}

// Respond 响应好友请求（accept / reject / block）
func (h *FriendshipHandler) Respond(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	friendshipID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req model.FriendRequestRespond
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	friendship, err := h.friendSvc.Respond(friendshipID, req.Action, user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, friendship)
}

// Remove 删除好友
func (h *FriendshipHandler) Remove(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	friendID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.friendSvc.Remove(user.ID, friendID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Friend removed successfully", nil)
}

// Cancel 取消自己发出的好友请求
func (h *FriendshipHandler) Cancel(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	addresseeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.friendSvc.Cancel(user.ID, addresseeID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Friend request cancelled successfully", nil)
}

// List 分页获取好友列表
func (h *FriendshipHandler) List(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	friends, err := h.friendSvc.ListFriends(user.ID, page, perPage)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, friends)
}

// Pending 收到的待处理请求
func (h *FriendshipHandler) Pending(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	requests, err := h.friendSvc.PendingRequests(user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"requests": requests})
}

// Sent 发出的待处理请求
func (h *FriendshipHandler) Sent(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	requests, err := h.friendSvc.SentRequests(user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"requests": requests})
}

// Status 查询与某个用户的好友关系状态
func (h *FriendshipHandler) Status(c *gin.Context) {
	user, _ := middleware.GetCurrentUser(c)

	otherID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	status, err := h.friendSvc.Status(user.ID, otherID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"user_id":           otherID,
		"friendship_status": status,
		"are_friends":       status == string(model.FriendshipAccepted),
	})
}
