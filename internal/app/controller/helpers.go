package controller

import (
	"strconv"

	"github.com/bizcomply/compliance-backend/internal/app/service"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// requestContext reads the authenticated caller. It writes a 401 and
// returns false when the auth middleware did not run.
func requestContext(c *gin.Context) (service.RequestContext, bool) {
	userID, okUser := middleware.GetUserID(c)
	companyID, okCompany := middleware.GetCompanyID(c)
	if !okUser || !okCompany {
		apperrors.Unauthorized(c, "Authentication required")
		return service.RequestContext{}, false
	}
	return service.RequestContext{CompanyID: companyID, UserID: userID}, true
}

// parseID reads a positive numeric path parameter, writing a 400 otherwise.
func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid ID")
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
