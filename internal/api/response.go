package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/errcode"
)

func Error(c *gin.Context, status, code int, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}

// ErrorWithView 返回错误并附带当前视图，客户端据此保持合法的页面。
func ErrorWithView(c *gin.Context, status, code int, msg string, view viewResponse) {
	c.JSON(status, gin.H{"error": msg, "code": code, "view": view})
}

func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, errcode.InvalidRequest, msg)
}

func Internal(c *gin.Context) {
	Error(c, http.StatusInternalServerError, errcode.SystemError, "internal error")
}
