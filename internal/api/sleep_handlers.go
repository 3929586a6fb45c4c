package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sh1zzle/activetime-project/internal/response"
	"github.com/sh1zzle/activetime-project/internal/service"
)

func PostSleep(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var body service.SleepLogRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}

		if err := service.ValidateSleepLogRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		log, err := service.CreateSleepLog(c.Request.Context(), app.SleepRepo(), user, &body)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to save log")
			return
		}

		HandleCreated(c, app.Logger(), log)
	}
}

// GetSleep lists the caller's sleep logs, newest first.
func GetSleep(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		page, limit := service.ParsePage(c.Query("page"), c.Query("limit"))
		p := service.Pagination{Page: page, Limit: limit}

		logs, total, err := app.SleepRepo().ListSleepLogs(c.Request.Context(), user.ID, p.ListOptions())
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch logs")
			return
		}

		c.JSON(200, response.Page(logs, service.NewPagination(page, limit, total)))
	}
}
