package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/response"
	"github.com/sh1zzle/activetime-project/internal/service"
)

var queryDateLayouts = []string{"2006-01-02", time.RFC3339}

func PostProductivity(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var req service.ProductivityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateProductivityRequest(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		entry, err := service.CreateProductivity(c.Request.Context(), app.ProductivityRepo(), user, &req)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to save productivity entry")
			return
		}
		HandleCreated(c, app.Logger(), entry)
	}
}

// GetProductivity pages through the caller's entries, newest day first,
// optionally bounded by the inclusive startDate and endDate query values.
func GetProductivity(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		page, limit := service.ParsePage(c.Query("page"), c.Query("limit"))
		p := service.Pagination{Page: page, Limit: limit}
		opts := p.ListOptions()

		var err error
		if opts.From, err = parseQueryDate(c.Query("startDate")); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid startDate")
			return
		}
		if opts.To, err = parseQueryDate(c.Query("endDate")); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid endDate")
			return
		}

		entries, total, err := app.ProductivityRepo().ListProductivity(c.Request.Context(), user.ID, opts)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch productivity entries")
			return
		}
		c.JSON(http.StatusOK, response.Page(entries, service.NewPagination(page, limit, total)))
	}
}

func PutProductivity(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var req service.ProductivityUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if req.ID == "" {
			HandleError(c, app.Logger(), errors.New("id is required"), 400, "Validation failed")
			return
		}
		if err := service.ValidateProductivityRequest(&req.ProductivityRequest); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		entry, err := service.UpdateProductivity(c.Request.Context(), app.ProductivityRepo(), user, &req)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to update productivity entry")
			return
		}
		HandleSuccess(c, app.Logger(), entry, nil)
	}
}

func DeleteProductivity(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		id := c.Query("id")
		if id == "" {
			HandleError(c, app.Logger(), internal.NewAppError(400, "Productivity entry ID is required"), 400, "")
			return
		}

		err := service.DeleteProductivity(c.Request.Context(), app.ProductivityRepo(), user, id)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to delete productivity entry")
			return
		}
		c.JSON(http.StatusOK, response.Message("Productivity entry deleted successfully"))
	}
}

// parseQueryDate returns the start of the named day, or the zero time for
// an empty value.
func parseQueryDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range queryDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return internal.StartOfDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}
