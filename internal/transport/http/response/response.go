package response

import "github.com/gin-gonic/gin"

// ErrorBody mirrors the wire contract clients already depend on: a success
// flag plus a human-readable detail string.
type ErrorBody struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

func Error(c *gin.Context, httpStatus int, detail string) {
	c.JSON(httpStatus, ErrorBody{Success: false, Detail: detail})
}
