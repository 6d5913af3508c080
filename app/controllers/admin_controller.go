package controllers

import (
	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/pkg/ctx"
)

type AdminController struct {
	admin *services.AdminService
}

func NewAdminController(admin *services.AdminService) *AdminController {
	return &AdminController{admin: admin}
}

func (ac *AdminController) Users(c *ctx.Context) {
	users, err := ac.admin.Users(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.List(users, len(users))
}

func (ac *AdminController) User(c *ctx.Context) {
	u, err := ac.admin.User(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}

func (ac *AdminController) DeleteUser(c *ctx.Context) {
	if err := ac.admin.DeleteUser(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Message("User removed", nil)
}

func (ac *AdminController) Stats(c *ctx.Context) {
	stats, err := ac.admin.Stats(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(stats)
}
