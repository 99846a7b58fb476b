package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	auditdomain "github.com/smallbiznis/botcentral/internal/audit/domain"
	authdomain "github.com/smallbiznis/botcentral/internal/auth/domain"
	"github.com/smallbiznis/botcentral/internal/authorization"
	automationdomain "github.com/smallbiznis/botcentral/internal/automation/domain"
	botdomain "github.com/smallbiznis/botcentral/internal/bot/domain"
	communitydomain "github.com/smallbiznis/botcentral/internal/community/domain"
	discorddomain "github.com/smallbiznis/botcentral/internal/discord/domain"
	identitydomain "github.com/smallbiznis/botcentral/internal/identity/domain"
	loggingconfigdomain "github.com/smallbiznis/botcentral/internal/loggingconfig/domain"
	moderationdomain "github.com/smallbiznis/botcentral/internal/moderation/domain"
	polldomain "github.com/smallbiznis/botcentral/internal/poll/domain"
	roledomain "github.com/smallbiznis/botcentral/internal/role/domain"
	"github.com/smallbiznis/botcentral/internal/secretbox"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
	ErrNotImplemented     = errors.New("not_implemented")
)

var validationSentinels = []error{
	ErrInvalidRequest,
	authdomain.ErrInvalidEmail,
	authdomain.ErrPasswordTooShort,
	authdomain.ErrInvalidSubscription,
	accesstokendomain.ErrInvalidName,
	accesstokendomain.ErrInvalidPermission,
	accesstokendomain.ErrInvalidExpiry,
	accesstokendomain.ErrInvalidTokenID,
	roledomain.ErrInvalidRole,
	roledomain.ErrInvalidUserID,
	roledomain.ErrInvalidID,
	roledomain.ErrInvalidGuild,
	moderationdomain.ErrInvalidID,
	moderationdomain.ErrInvalidAction,
	moderationdomain.ErrInvalidSeverity,
	moderationdomain.ErrInvalidDuration,
	moderationdomain.ErrInvalidGuild,
	moderationdomain.ErrInvalidName,
	moderationdomain.ErrInvalidFilterType,
	moderationdomain.ErrInvalidPattern,
	moderationdomain.ErrInvalidStatus,
	moderationdomain.ErrInvalidContentType,
	moderationdomain.ErrInvalidReason,
	automationdomain.ErrInvalidID,
	automationdomain.ErrInvalidName,
	automationdomain.ErrInvalidGuild,
	automationdomain.ErrInvalidTriggerType,
	automationdomain.ErrInvalidActions,
	automationdomain.ErrInvalidAction,
	automationdomain.ErrInvalidCooldown,
	automationdomain.ErrInvalidRole,
	automationdomain.ErrInvalidUserID,
	automationdomain.ErrAutoRoleInactive,
	automationdomain.ErrNotStackable,
	loggingconfigdomain.ErrInvalidID,
	loggingconfigdomain.ErrInvalidName,
	loggingconfigdomain.ErrInvalidGuild,
	loggingconfigdomain.ErrInvalidChannel,
	loggingconfigdomain.ErrInvalidLogType,
	loggingconfigdomain.ErrInvalidWebhook,
	polldomain.ErrInvalidID,
	polldomain.ErrInvalidTitle,
	polldomain.ErrInvalidCategory,
	polldomain.ErrInvalidExpiry,
	polldomain.ErrInvalidOption,
	polldomain.ErrTooManyOptions,
	polldomain.ErrPollClosed,
	botdomain.ErrInvalidID,
	botdomain.ErrInvalidName,
	botdomain.ErrInvalidType,
	botdomain.ErrInvalidStatus,
	botdomain.ErrInvalidToken,
	botdomain.ErrInvalidPrefix,
	botdomain.ErrInvalidClientID,
	communitydomain.ErrInvalidID,
	communitydomain.ErrInvalidTitle,
	communitydomain.ErrInvalidContent,
	communitydomain.ErrInvalidCapacity,
	discorddomain.ErrInvalidState,
	discorddomain.ErrInvalidCode,
	discorddomain.ErrInvalidServer,
	auditdomain.ErrInvalidGuild,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidActor,
	authorization.ErrInvalidGuild,
}

var notFoundSentinels = []error{
	ErrNotFound,
	accesstokendomain.ErrNotFound,
	roledomain.ErrNotFound,
	moderationdomain.ErrNotFound,
	automationdomain.ErrNotFound,
	loggingconfigdomain.ErrNotFound,
	polldomain.ErrNotFound,
	botdomain.ErrNotFound,
	communitydomain.ErrNotFound,
	discorddomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// bindError turns a gin binding failure into field level validation errors.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := lowerFirst(fe.Field())
		out = append(out, ValidationError{
			Field:   field,
			Code:    fe.Tag(),
			Message: field + " failed " + fe.Tag() + " validation",
		})
	}
	return &ValidationErrors{Errors: out}
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identitydomain.ErrUnauthenticated),
		errors.Is(err, accesstokendomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, botdomain.ErrPremiumRequired):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, polldomain.ErrAlreadyVoted):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, discorddomain.ErrUpstream):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "discord request failed",
		}
	case errors.Is(err, ErrNotImplemented):
		return http.StatusNotImplemented, errorPayload{
			Type:    "not_implemented",
			Message: "not implemented",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, secretbox.ErrKeyMissing):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, discorddomain.ErrNotConfigured):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "discord oauth not configured",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	for _, target := range validationSentinels {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isNotFoundError(err error) bool {
	for _, target := range notFoundSentinels {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationErrorCode(err error) string {
	for _, target := range validationSentinels {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

func lowerFirst(value string) string {
	if value == "" {
		return value
	}
	return strings.ToLower(value[:1]) + value[1:]
}
