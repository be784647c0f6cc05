package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/incridea-nmamit/incridea-server/internal/fest"
)

var statusByKind = map[fest.Kind]int{
	fest.KindUnauthenticated:    http.StatusUnauthorized,
	fest.KindForbidden:          http.StatusForbidden,
	fest.KindNotFound:           http.StatusNotFound,
	fest.KindInvariantViolation: http.StatusBadRequest,
	fest.KindConflictOnWrite:    http.StatusConflict,
	fest.KindInternal:           http.StatusInternalServerError,
}

func statusOf(kind fest.Kind) int {
	if code, ok := statusByKind[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error", "kind"}. Internal failures are logged and
// their details withheld.
func (s *Server) fail(c *gin.Context, err error) {
	kind := fest.KindOf(err)
	msg := "Something went wrong"
	var e *fest.Error
	if errors.As(err, &e) && kind != fest.KindInternal {
		msg = e.Message
	}
	if kind == fest.KindInternal {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(), "request_id", c.GetString(requestIDKey), "err", err)
	}
	c.AbortWithStatusJSON(statusOf(kind), gin.H{"error": msg, "kind": kind})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "kind": fest.KindInvariantViolation})
}

// param parses the named path parameter as a positive id.
func param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "bad "+name)
		return 0, false
	}
	return v, true
}

func roundParam(c *gin.Context) (int, bool) {
	v, err := strconv.Atoi(c.Param("round"))
	if err != nil || v <= 0 {
		badRequest(c, "bad round")
		return 0, false
	}
	return v, true
}

func limitQuery(c *gin.Context) uint64 {
	v, err := strconv.ParseUint(c.Query("limit"), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
