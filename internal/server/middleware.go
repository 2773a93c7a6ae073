package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openmentor/scheduler/internal/model"
)

const (
	ctxActorID   = "actorID"
	ctxActorRole = "actorRole"

	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// ActorMiddleware извлекает явного актора из заголовков.
// Аутентификация живёт во внешнем слое, движку нужны только id и роль;
// заголовки разбираются всегда, обязательность решает конкретный обработчик.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := strconv.ParseInt(c.GetHeader(headerUserID), 10, 64); err == nil {
			c.Set(ctxActorID, id)
		}

		switch role := model.ActorRole(c.GetHeader(headerUserRole)); role {
		case model.RoleMentor, model.RoleStudent:
			c.Set(ctxActorRole, role)
		}

		c.Next()
	}
}

// requireActor достаёт актора из контекста, false если заголовки не заданы
func requireActor(c *gin.Context) (int64, model.ActorRole, bool) {
	id, okID := c.Get(ctxActorID)
	role, okRole := c.Get(ctxActorRole)
	if !okID || !okRole {
		badRequest(c, "X-User-ID and X-User-Role headers are required")
		return 0, "", false
	}

	return id.(int64), role.(model.ActorRole), true
}
