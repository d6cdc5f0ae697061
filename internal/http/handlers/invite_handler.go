package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/corent-backend/internal/dto"
	"github.com/ignatzorin/corent-backend/internal/http/handlers/common"
	"github.com/ignatzorin/corent-backend/internal/interface/http/response"
	"github.com/ignatzorin/corent-backend/internal/service"
)

// InviteHandler обслуживает приглашения участников.
type InviteHandler struct {
	invites *service.InviteService
}

func NewInviteHandler(invites *service.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

// Invite POST /api/members/invite
func (h *InviteHandler) Invite(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req dto.InviteMemberRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		response.Validation(c, err.Error())
		return
	}

	res, err := h.invites.Invite(c.Request.Context(), userID, service.InviteInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.InviteMemberResponse{
		Message:     "Приглашение отправлено",
		InviteToken: res.InviteToken,
		Invitation:  res.Invitation,
		SMS:         res.SMS,
		EmailSent:   res.EmailSent,
	})
}

// Accept PATCH /api/members/invite/accept
func (h *InviteHandler) Accept(c *gin.Context) {
	var req dto.AcceptInviteRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		response.Validation(c, err.Error())
		return
	}

	inv, err := h.invites.Accept(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.AcceptInviteResponse{
		Message:    "Приглашение принято",
		Invitation: inv,
	})
}

// List GET /api/members/invitations
func (h *InviteHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	invitations, err := h.invites.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.InvitationListResponse{
		Invitations: invitations,
		Total:       len(invitations),
	})
}
