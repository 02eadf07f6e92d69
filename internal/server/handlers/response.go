package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
	"github.com/anilytics/agriwarehouse/internal/repository/mongodb"
	"github.com/anilytics/agriwarehouse/internal/service/alerts"
	"github.com/anilytics/agriwarehouse/internal/service/reporting"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": status < http.StatusBadRequest, "message": message})
}

// respondError maps service errors onto HTTP statuses. Unexpected errors are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondMessage(c, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, models.ErrInsufficientStock):
		respondMessage(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrBatchNotFound),
		errors.Is(err, models.ErrInventoryLogNotFound),
		errors.Is(err, mongodb.ErrReportNotFound):
		respondMessage(c, http.StatusNotFound, err.Error())
	case errors.Is(err, reporting.ErrArchiveDisabled), errors.Is(err, alerts.ErrDisabled):
		respondMessage(c, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		respondMessage(c, http.StatusInternalServerError, "Internal Server Error")
	}
}

func bindJSON(c *gin.Context, logger *zap.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		respondMessage(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondMessage(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, keys ...string) (*int, error) {
	for _, key := range keys {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &models.ValidationError{Field: key, Value: raw, Reason: "must be an integer"}
		}
		return &v, nil
	}
	return nil, nil
}
