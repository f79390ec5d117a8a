package response

import "github.com/gin-gonic/gin"

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
		RequestID:  c.GetString("request_id"),
	})
}

// Success responds with a "success" envelope
func Success(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, "success", code, message, data, nil)
}

// Error responds with an "error" envelope carrying err's message as detail
func Error(c *gin.Context, code int, message string, err error) {
	var detail interface{}
	if err != nil {
		detail = err.Error()
	}
	RespondJSON(c, "error", code, message, nil, detail)
}
