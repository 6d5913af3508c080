// Package controllers adapts HTTP requests to the shop services.
package controllers

import (
	"errors"
	"net/http"

	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/pkg/auth"
	"github.com/shashiranjanraj/kisanmart/pkg/ctx"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/session"
)

// fail writes err as the JSON envelope. Service errors keep their message;
// anything else is logged and hidden behind a generic 500.
func fail(c *ctx.Context, err error) {
	var se *services.Error
	if errors.As(err, &se) && se.Kind != services.KindUnexpected {
		if len(se.Fields) > 0 {
			c.ValidationError(se.Fields)
			return
		}
		if se.Kind == services.KindGateway {
			logger.WithCtx(c.Context()).Error(se.Message, "error", se.Err)
		}
		c.Error(se.Kind.Status(), se.Message)
		return
	}

	logger.WithCtx(c.Context()).Error("request failed",
		"method", c.R.Method, "path", c.R.URL.Path, "error", err)
	c.Error(http.StatusInternalServerError, "Internal Server Error")
}

func identity(c *ctx.Context) auth.Identity {
	id, _ := auth.FromCtx(c.Context())
	return id
}

// saveSession persists the session before the response is written, so the
// cookie header goes out with it.
func saveSession(c *ctx.Context, sess *session.Session) bool {
	if err := sess.Save(c.Context(), c.W); err != nil {
		fail(c, err)
		return false
	}
	return true
}
