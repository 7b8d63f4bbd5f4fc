package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ehopn/invoice_go_server/internal/pkg/response"
	"github.com/ehopn/invoice_go_server/internal/service"
)

// UploadLimit 上传前的套餐额度预检。
// 真正的闸门在入库事务里，这里只是提前给出友好报错。
func UploadLimit(limitService *service.LimitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		usage, err := limitService.CheckUploadLimit(userID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				// 令牌有效但账号已不存在，按拒绝处理
				response.LimitError(c, "User not found")
			} else {
				response.ServerError(c, "Failed to check upload limit")
			}
			c.Abort()
			return
		}

		if usage.Exceeded() {
			remaining, _ := usage.Remaining()
			response.ErrorWithData(c, http.StatusForbidden,
				fmt.Sprintf("Upload limit reached for %s plan", usage.Plan),
				gin.H{
					"limit":     usage.Limit,
					"used":      usage.Used,
					"remaining": remaining,
				})
			c.Abort()
			return
		}

		c.Next()
	}
}
