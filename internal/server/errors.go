package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	billingdomain "github.com/Gor0d/FisioHUB-sub000/internal/billing/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/partition"
	tenantdomain "github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/gin-gonic/gin"
)

// ValidationError reports a single invalid request field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Code)
}

func newValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() *ValidationError {
	return newValidationError("body", "invalid_request", "request body could not be parsed")
}

// errorMapping pins each taxonomy kind to a stable status code and a
// machine-readable code string, so client tooling can distinguish "upgrade
// your plan" from "try again later" from "not found".
var errorMapping = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{tenantdomain.ErrInvalidIdentifier, http.StatusBadRequest, "invalid_identifier", "the tenant identifier is malformed"},
	{tenantdomain.ErrInvalidSlug, http.StatusBadRequest, "invalid_slug", "the slug is malformed"},
	{tenantdomain.ErrInvalidName, http.StatusBadRequest, "invalid_name", "the tenant name is required"},
	{tenantdomain.ErrSlugTaken, http.StatusConflict, "slug_taken", "the slug is already registered"},
	{tenantdomain.ErrDeleteNotConfirmed, http.StatusBadRequest, "delete_not_confirmed", "tenant deletion requires slug confirmation"},
	{tenantdomain.ErrManagementKeyInvalid, http.StatusUnauthorized, "management_key_invalid", "the management key is missing or wrong"},
	{tenantdomain.ErrTenantNotFound, http.StatusNotFound, "tenant_not_found", "no tenant matches this identifier"},
	{tenantdomain.ErrTenantInactive, http.StatusForbidden, "tenant_inactive", "this tenant is suspended"},
	{billingdomain.ErrNoActiveSubscription, http.StatusPaymentRequired, "no_active_subscription", "no active subscription for this tenant"},
	{billingdomain.ErrPlanLimitExceeded, http.StatusPaymentRequired, "plan_limit_exceeded", "the plan limit for this resource was reached"},
	{billingdomain.ErrFeatureNotAvailable, http.StatusForbidden, "feature_not_available", "this feature is not included in the current plan"},
	{billingdomain.ErrPlanNotFound, http.StatusInternalServerError, "plan_not_found", "the referenced plan does not exist"},
	{tenantdomain.ErrStorageUnavailable, http.StatusInternalServerError, "storage_unavailable", "persistent storage is unavailable, retry shortly"},
	{partition.ErrProvisioningFailed, http.StatusInternalServerError, "partition_provisioning_failed", "the tenant partition could not be provisioned"},
	{partition.ErrDestroyFailed, http.StatusInternalServerError, "partition_destroy_failed", "the tenant partition could not be destroyed"},
}

// AbortWithError translates a taxonomy error into its response. Unknown
// errors become opaque 500s: internal details never reach the client.
func AbortWithError(c *gin.Context, err error) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    validation.Code,
				"message": validation.Message,
				"field":   validation.Field,
			},
		})
		return
	}

	for _, mapping := range errorMapping {
		if errors.Is(err, mapping.err) {
			c.AbortWithStatusJSON(mapping.status, gin.H{
				"error": gin.H{
					"code":    mapping.code,
					"message": mapping.message,
				},
			})
			return
		}
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}

// abortRateLimited emits the 429 response with its retry hint.
func abortRateLimited(c *gin.Context, resetAfter time.Duration) {
	seconds := int(resetAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": gin.H{
			"code":        "rate_limit_exceeded",
			"message":     "too many requests, slow down",
			"retry_after": seconds,
		},
	})
}

// abortQuotaExceeded carries the numeric context for upgrade messaging.
func abortQuotaExceeded(c *gin.Context, limit, current int64) {
	c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
		"error": gin.H{
			"code":    "plan_limit_exceeded",
			"message": "the plan limit for this resource was reached",
			"limit":   limit,
			"current": current,
		},
	})
}
