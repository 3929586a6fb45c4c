package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sh1zzle/activetime-project/internal/auth"
	"github.com/sh1zzle/activetime-project/internal/response"
	"github.com/sh1zzle/activetime-project/internal/service"
)

func Signup(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Please provide all required fields")
			return
		}
		if err := service.ValidateSignupRequest(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Please provide all required fields")
			return
		}

		user, err := service.Signup(c.Request.Context(), app.UserRepo(), &req)
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, response.BadRequest("User already exists"))
			return
		}
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to create user")
			return
		}

		app.Logger().Infof("[request_id=%s] created user %s", c.GetString(requestIDKey), user.ID)
		c.JSON(http.StatusCreated, response.Message("User created successfully"))
	}
}

func Login(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Please provide email and password")
			return
		}
		if err := service.ValidateLoginRequest(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Please provide email and password")
			return
		}

		token, user, err := service.Login(c.Request.Context(), app.UserRepo(), app.Tokens(), &req)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, response.Unauthorized("Invalid credentials"))
			return
		}
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to log in")
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}
