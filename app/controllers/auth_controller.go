package controllers

import (
	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/pkg/ctx"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

func (ac *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	res, err := ac.auth.Register(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(res)
}

func (ac *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	res, err := ac.auth.Login(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(res)
}

// AdminLogin checks the configured admin credentials.
func (ac *AuthController) AdminLogin(c *ctx.Context) {
	var in services.LoginInput
	if !c.DecodeJSON(&in) {
		return
	}
	res, err := ac.auth.AdminLogin(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(res)
}

func (ac *AuthController) Profile(c *ctx.Context) {
	u, err := ac.auth.Profile(c.Context(), identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}

func (ac *AuthController) UpdateProfile(c *ctx.Context) {
	var in services.ProfileInput
	if !c.BindJSON(&in) {
		return
	}
	u, err := ac.auth.UpdateProfile(c.Context(), identity(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}
