package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sh1zzle/activetime-project/internal/healthimport"
)

const (
	healthDataField = "healthData"

	msgNoFile        = "No file uploaded"
	msgNotZip        = "Please upload a .zip file from Apple Health"
	msgInvalidExport = "Could not process the health data file. Please make sure it's a valid Apple Health export."
	msgImportFailed  = "Failed to import health data"
	msgTooLarge      = "Health data file is too large"
)

// ImportHealthData accepts an Apple Health export archive in the healthData
// multipart field and answers with the number of new sleep logs.
func ImportHealthData(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		requestID := c.GetString(requestIDKey)

		fh, err := c.FormFile(healthDataField)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			app.Logger().Warnf("[request_id=%s] upload over %d bytes", requestID, tooLarge.Limit)
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgTooLarge})
			return
		}
		if err != nil {
			app.Logger().Warnf("[request_id=%s] import without file: %v", requestID, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": msgNoFile})
			return
		}
		if err := healthimport.ValidateFilename(fh.Filename); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": importErrorMessage(err)})
			return
		}

		f, err := fh.Open()
		if err != nil {
			app.Logger().Errorf("[request_id=%s] open upload: %v", requestID, err)
			reportError(c, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgImportFailed})
			return
		}
		defer f.Close()

		res, err := app.Importer().Import(c.Request.Context(), user.ID, fh.Filename, f)
		if err != nil {
			status := importErrorStatus(err)
			if status >= http.StatusInternalServerError {
				app.Logger().Errorf("[request_id=%s] health import failed: %v", requestID, err)
				reportError(c, err)
			} else {
				app.Logger().Warnf("[request_id=%s] health import rejected: %v", requestID, err)
			}
			c.JSON(status, gin.H{"error": importErrorMessage(err)})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Import successful", "count": res.Imported})
	}
}

func importErrorStatus(err error) int {
	if errors.Is(err, healthimport.ErrInvalidInput) || errors.Is(err, healthimport.ErrInvalidFormat) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func importErrorMessage(err error) string {
	switch {
	case errors.Is(err, healthimport.ErrNoFile):
		return msgNoFile
	case errors.Is(err, healthimport.ErrNotZip):
		return msgNotZip
	case errors.Is(err, healthimport.ErrInvalidFormat):
		return msgInvalidExport
	default:
		return msgImportFailed
	}
}
