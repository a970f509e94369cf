package echomw

import (
	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

func RouteAccessLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		LogRouteAccess(c, tl.Info, "Accessing route", palette.Blue) // Log the visit
		err := next(c)
		if err != nil {
			c.Error(err) // let echo write the response so the status below is final
		}
		LogRouteAccess(c, tl.Info1, "Route accessed", statusColor(c.Response().Status))
		return nil
	}
}

// Log route access
func LogRouteAccess(c echo.Context, logLevel tl.LogLevel, actionName string, colorizer palette.Colorizer) {
	path := c.Path()
	if path == "/healthz" {
		logLevel = tl.Verbose
		colorizer = palette.CyanDim
	}
	tl.Log(
		logLevel, colorizer, "%s: Method='%s', Path='%s', Status='%s', ClientIP='%s'",
		actionName, c.Request().Method, path, c.Response().Status, c.RealIP(),
	)
}

func statusColor(status int) palette.Colorizer {
	switch {
	case status >= 500:
		return palette.RedBold
	case status >= 400:
		return palette.Yellow
	default:
		return palette.Green
	}
}
