package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/logger"
	"github.com/ignatzorin/corent-backend/internal/pkg/apperror"
)

// ErrorBody представляет тело ответа с ошибкой.
type ErrorBody struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	Code              string `json:"code"`
	RetryAfter        int    `json:"retryAfter,omitempty"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
}

var errorTitles = map[apperror.ErrorCode]string{
	apperror.ErrCodeNotFound:           "Not found",
	apperror.ErrCodeUnauthorized:       "Unauthorized",
	apperror.ErrCodeForbidden:          "Forbidden",
	apperror.ErrCodeBadRequest:         "Bad request",
	apperror.ErrCodeValidation:         "Validation error",
	apperror.ErrCodeInvalidPhone:       "Invalid phone number",
	apperror.ErrCodeRateLimited:        "Rate limit exceeded",
	apperror.ErrCodeResendTooFrequent:  "Resend too frequent",
	apperror.ErrCodeCodeNotFound:       "Verification code not found",
	apperror.ErrCodeInvalidCode:        "Invalid verification code",
	apperror.ErrCodeDeliveryFailed:     "SMS delivery failed",
	apperror.ErrCodeInvalidInviteToken: "Invalid or expired token",
	apperror.ErrCodeInternal:           "Internal server error",
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Error отдаёт AppError клиенту. Неизвестные ошибки логируются и превращаются
// в общий 500 без подробностей.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error(err, requestFields(c))
		appErr = apperror.NewInternal(err)
	} else if appErr.Code == apperror.ErrCodeInternal {
		logger.Error(err, requestFields(c))
	}

	body := ErrorBody{
		Error:             title(appErr.Code),
		Message:           appErr.Message,
		Code:              string(appErr.Code),
		RetryAfter:        appErr.RetryAfter,
		RemainingAttempts: appErr.RemainingAttempts,
	}
	if appErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, body)
}

func Validation(c *gin.Context, message string) {
	Error(c, apperror.New(apperror.ErrCodeValidation, message))
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, apperror.New(apperror.ErrCodeUnauthorized, message))
}

func Forbidden(c *gin.Context, message string) {
	Error(c, apperror.New(apperror.ErrCodeForbidden, message))
}

func title(code apperror.ErrorCode) string {
	if t, ok := errorTitles[code]; ok {
		return t
	}
	return errorTitles[apperror.ErrCodeInternal]
}

func requestFields(c *gin.Context) logrus.Fields {
	return logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"ip":     c.ClientIP(),
	}
}
