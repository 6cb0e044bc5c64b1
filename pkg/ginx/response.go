package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"fieldaudit/pkg/errorutil"
)

// Response 统一响应结构
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data,omitempty"`
}

// Meta 元数据
type Meta struct {
	Code    int           `json:"code" example:"200"`
	Message string        `json:"message" example:"OK"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string `json:"path" example:"window_start"`
	Info string `json:"info" example:"window_start must be YYYY-MM-DD"`
}

// write 输出统一信封；非 2xx 时中止后续 handler
func write(c *gin.Context, code int, message string, details []ErrorDetail, data interface{}) {
	body := Response{Meta: Meta{Code: code, Message: message, Details: details}, Data: data}
	if code >= http.StatusBadRequest {
		c.AbortWithStatusJSON(code, body)
		return
	}
	c.JSON(code, body)
}

// Success 200 + data
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, "OK", nil, data)
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, message string) {
	write(c, httpCode, message, nil, nil)
}

// ErrorWithDetails 带详情的错误响应（校验失败等）
func ErrorWithDetails(c *gin.Context, httpCode int, message string, details []ErrorDetail) {
	write(c, httpCode, message, details, nil)
}

// FromError 按 errorutil.Error 的状态码输出；其他错误按 500 处理
func FromError(c *gin.Context, err error) {
	var e *errorutil.Error
	if !errors.As(err, &e) {
		InternalError(c, err.Error())
		return
	}

	code := errorutil.StatusCode(e)
	if e.DevDetails != "" && code == http.StatusBadRequest {
		ErrorWithDetails(c, code, e.Message, []ErrorDetail{{Info: e.DevDetails}})
		return
	}
	Error(c, code, e.Error())
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// BadRequestWithValidation 400 错误（带验证详情）
func BadRequestWithValidation(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]ErrorDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, ErrorDetail{
				Path: fieldErr.Field(),
				Info: getValidationErrorMessage(fieldErr),
			})
		}
		ErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details)
		return
	}

	BadRequest(c, err.Error())
}

// Unauthorized 401 错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// Forbidden 403 错误
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// NotFound 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// getValidationErrorMessage 根据验证错误类型返回友好的错误消息
func getValidationErrorMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fieldErr.Field() + " is required"
	case "datetime":
		return fieldErr.Field() + " must match " + fieldErr.Param()
	case "min":
		return fieldErr.Field() + " must be at least " + fieldErr.Param()
	case "max":
		return fieldErr.Field() + " must be at most " + fieldErr.Param()
	default:
		return fieldErr.Field() + " is invalid"
	}
}
