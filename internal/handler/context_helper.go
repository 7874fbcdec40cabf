package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-academy-api/internal/middleware"
	"github.com/noah-isme/ams-academy-api/internal/models"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

const dateLayout = "2006-01-02"

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

// actorID is the subject of the access token, "admin" when absent.
func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil && claims.Subject != "" {
		return claims.Subject
	}
	return "admin"
}

func invalidPayload(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

func pageParams(c *gin.Context) (page, size int) {
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid "+key+", expected YYYY-MM-DD")
	}
	return &parsed, nil
}

func dateRange(c *gin.Context) (from, to *time.Time, err error) {
	if from, err = dateQuery(c, "from"); err != nil {
		return nil, nil, err
	}
	if to, err = dateQuery(c, "to"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
