package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-scheduler-api/internal/middleware"
	"github.com/noah-isme/campus-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/campus-scheduler-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// resolveStudentID defaults the target student to the caller. Only admins may act
// on behalf of another student.
func resolveStudentID(c *gin.Context, requested string) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if requested == "" || requested == claims.UserID {
		return claims.UserID, nil
	}
	if claims.Role != models.RoleAdmin {
		return "", appErrors.Clone(appErrors.ErrForbidden, "cannot act on behalf of another student")
	}
	return requested, nil
}
