package middleware

import (
	"io"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// CORS values sent to every caller of the mock.
const (
	CORSAllowOrigins = "*"
	CORSAllowMethods = "GET,HEAD,OPTIONS,POST,PUT,DELETE"
	CORSAllowHeaders = "Origin, X-Requested-With, Content-Type, Accept, Authorization"
)

// Config customises the middleware registration pipeline.
type Config struct {
	Logger    *zerolog.Logger
	AccessLog io.Writer
}

// Register attaches the global middlewares shared by every route.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}

	accessLog := cfg.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}

	app.Use(recover.New())
	app.Use(CorrelationID())
	app.Use(helmet.New())
	app.Use(Observability(requestLogger))
	app.Use(logger.New(logger.Config{
		Output: accessLog,
		Format: "${time} ${method} ${path} ${status} ${latency} - ${bytesSent}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: CORSAllowOrigins,
		AllowHeaders: CORSAllowHeaders,
		AllowMethods: CORSAllowMethods,
	}))
}
