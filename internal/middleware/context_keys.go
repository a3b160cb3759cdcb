package middleware

import "github.com/gin-gonic/gin"

// phoneKey is the key used to store the authenticated canonical phone in the
// request context.
const phoneKey = contextKey("phone")

// GetPhoneFromContext retrieves the authenticated phone number from the Gin
// context. It returns the phone and a boolean indicating if it was found.
func GetPhoneFromContext(c *gin.Context) (string, bool) {
	val := c.Request.Context().Value(phoneKey)
	if val == nil {
		return "", false
	}
	phone, ok := val.(string)
	if !ok {
		return "", false
	}
	return phone, true
}
