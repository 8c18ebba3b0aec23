package config

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger, env *Env) *fiber.App {
	bodyLimit := 50 * 1024 * 1024
	if env != nil && env.BodyLimit > 0 {
		bodyLimit = env.BodyLimit
	}

	app := fiber.New(
		fiber.Config{
			AppName:           "SkinDetect",
			BodyLimit:         bodyLimit,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: env != nil && env.AppEnv == "development",
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
		})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			logger.WithFields(logrus.Fields{
				"path":  c.Path(),
				"panic": e,
			}).Error("Recovered from panic")
		},
	}))
	app.Use(cors.New())

	return app
}
