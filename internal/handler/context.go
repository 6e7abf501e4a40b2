package handler

import "github.com/labstack/echo/v4"

// userContextKey is where the JWT middleware stores the authenticated user
// id after token verification.
const userContextKey = "user"

// currentUserID returns the authenticated user's id. Routes using it sit
// behind the JWT middleware, so the key is always populated.
func currentUserID(c echo.Context) uint {
	id, _ := c.Get(userContextKey).(uint)
	return id
}
