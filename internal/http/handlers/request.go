package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/http/response"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/ctxutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

func caller(c *gin.Context) *ctxutil.RequestData {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil
	}
	return rd
}

func uuidParam(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func boolQuery(c *gin.Context, name string, def bool) bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// fail writes err and logs it when it maps to a server-side status.
func fail(c *gin.Context, log *logger.Logger, msg string, err error, kv ...interface{}) {
	ae := response.FromError(err)
	if ae.Status >= http.StatusInternalServerError {
		log.Error(msg, append(kv, "error", err)...)
	}
	response.RespondError(c, ae.Status, ae.Code, ae.Err)
}
