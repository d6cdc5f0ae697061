package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/dto"
	"github.com/ignatzorin/corent-backend/internal/http/handlers/common"
	"github.com/ignatzorin/corent-backend/internal/interface/http/response"
	"github.com/ignatzorin/corent-backend/internal/logger"
	"github.com/ignatzorin/corent-backend/internal/models"
	"github.com/ignatzorin/corent-backend/internal/service"
	"github.com/ignatzorin/corent-backend/internal/validation"
)

// CallbackValidator проверяет подпись callback-запроса провайдера.
type CallbackValidator interface {
	Validate(url string, params map[string]string, signature string) bool
}

// SMSHandler обслуживает отправку и проверку SMS-кодов.
type SMSHandler struct {
	verification *service.VerificationService
	deliveries   *service.DeliveryLogService
	validator    CallbackValidator
	publicURL    string
}

// NewSMSHandler создаёт хэндлер. validator == nil отключает проверку подписи callback-ов.
func NewSMSHandler(verification *service.VerificationService, deliveries *service.DeliveryLogService, validator CallbackValidator, publicURL string) *SMSHandler {
	return &SMSHandler{
		verification: verification,
		deliveries:   deliveries,
		validator:    validator,
		publicURL:    publicURL,
	}
}

// SendVerification POST /api/auth/send-verification
func (h *SMSHandler) SendVerification(c *gin.Context) {
	var req dto.SendVerificationRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		response.Validation(c, err.Error())
		return
	}

	res, err := h.verification.SendCode(c.Request.Context(), service.SendCodeInput{
		Phone:       req.Phone,
		InviteToken: req.InviteToken,
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, sendResponse("Код подтверждения отправлен", res))
}

// ResendSMS POST /api/auth/resend-sms
func (h *SMSHandler) ResendSMS(c *gin.Context) {
	var req dto.SendVerificationRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		response.Validation(c, err.Error())
		return
	}

	res, err := h.verification.ResendCode(c.Request.Context(), service.SendCodeInput{
		Phone:       req.Phone,
		InviteToken: req.InviteToken,
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, sendResponse("Код подтверждения отправлен повторно", res))
}

// VerifySMS POST /api/auth/verify-sms
func (h *SMSHandler) VerifySMS(c *gin.Context) {
	var req dto.VerifySMSRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		response.Validation(c, err.Error())
		return
	}
	if err := validation.ValidateVerificationCode(req.VerificationCode); err != nil {
		response.Validation(c, err.Error())
		return
	}

	res, err := h.verification.VerifyCode(c.Request.Context(), service.VerifyCodeInput{
		Phone:       req.Phone,
		Code:        req.VerificationCode,
		InviteToken: req.InviteToken,
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	out := dto.VerifySMSResponse{
		Message:   "Номер подтверждён",
		Verified:  true,
		Phone:     res.Phone,
		Timestamp: res.VerifiedAt.UTC(),
	}
	if res.InvitationID != nil {
		out.InvitationID = res.InvitationID.String()
	}
	response.Success(c, out)
}

// StatusCallback POST /api/auth/sms/status-callback
// Провайдер ждёт 200 на любой разобранный callback, иначе будет повторять запрос.
func (h *SMSHandler) StatusCallback(c *gin.Context) {
	var req dto.SMSStatusCallback
	if err := c.ShouldBind(&req); err != nil {
		response.Validation(c, err.Error())
		return
	}

	if h.validator != nil {
		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
		url := h.publicURL + c.Request.URL.RequestURI()
		if !h.validator.Validate(url, params, c.GetHeader("X-Twilio-Signature")) {
			logger.Security("sms_callback_bad_signature", logrus.Fields{"ip": c.ClientIP()})
			response.Forbidden(c, "неверная подпись запроса")
			return
		}
	}

	if _, err := h.deliveries.HandleStatusCallback(c.Request.Context(), models.SMSStatusUpdate{
		MessageID:    req.MessageSid,
		Status:       req.MessageStatus,
		ErrorCode:    req.ErrorCode,
		ErrorMessage: req.ErrorMessage,
	}); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// MessageStatus GET /api/auth/sms/messages/:messageId
func (h *SMSHandler) MessageStatus(c *gin.Context) {
	msg, err := h.deliveries.Get(c.Request.Context(), c.Param("messageId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

// Stats GET /api/auth/verification-stats
func (h *SMSHandler) Stats(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	stats, err := h.verification.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.VerificationStatsResponse{
		ActiveVerifications: stats.ActiveVerifications,
		RateLimitEntries:    stats.RateLimitEntries,
		Timestamp:           stats.Timestamp.UTC(),
	})
}

func sendResponse(message string, res *service.SendCodeResult) dto.SendVerificationResponse {
	return dto.SendVerificationResponse{
		Message:     message,
		SMSSent:     res.SMSSent,
		Provider:    res.Provider,
		MessageID:   res.MessageID,
		ExpiresIn:   res.ExpiresIn,
		Note:        res.Note,
		MockMessage: res.MockMessage,
	}
}
