package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/equipviz/equipviz/pkg/config"
	"github.com/equipviz/equipviz/pkg/contract"
	"github.com/equipviz/equipviz/pkg/service"
	"github.com/equipviz/equipviz/pkg/storage"
	"github.com/equipviz/equipviz/pkg/store/sql"
)

func newErrorHandler(cfg *config.Config, log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *contract.Error
		if !errors.As(err, &e) {
			code := contract.ErrorCode_INTERNAL_ERROR

			var f *fiber.Error
			if errors.As(err, &f) {
				switch f.Code {
				case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
					code = contract.ErrorCode_BAD_REQUEST
				case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
					code = contract.ErrorCode_ENDPOINT_NOT_FOUND
				}
			}

			if code == contract.ErrorCode_INTERNAL_ERROR {
				// The cause only reaches the log line below.
				e = contract.NewErrorWith(code, "An internal error occurred", err)
			} else {
				e = contract.NewError(code, err.Error())
			}
		}

		if cfg.MaskForbidden && e.Code == contract.ErrorCode_PERMISSION_DENIED {
			e = contract.NewErrorWith(
				contract.ErrorCode_RESOURCE_DOES_NOT_EXIST,
				fmt.Sprintf("No dataset with id=%s exists", c.Params("id")),
				e,
			)
		}

		var fn func(format string, args ...any)

		switch e.StatusCode() {
		case fiber.StatusBadRequest, fiber.StatusUnauthorized, fiber.StatusConflict:
			fn = log.Infof
		case fiber.StatusForbidden:
			fn = log.Warnf
		case fiber.StatusNotFound:
			fn = log.Debugf
		default:
			fn = log.Errorf
		}

		fn("Error encountered in %s %s: %s", c.Method(), c.Path(), e)

		return c.Status(e.StatusCode()).JSON(e)
	}
}

// NewApp builds the HTTP application around an already constructed service.
func NewApp(cfg *config.Config, log *logrus.Logger, datasets contract.DatasetService) (*fiber.App, error) {
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		ReadBufferSize:        16384,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
		ServerHeader:          "equipviz/" + cfg.Version,
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          newErrorHandler(cfg, log),
	})

	app.Use(compress.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(logger.New(logger.Config{
		Format: "${status} - ${latency} ${method} ${path}\n",
		Output: log.Writer(),
	}))
	allowHeaders := []string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization}
	if cfg.OwnerHeader != "" {
		allowHeaders = append(allowHeaders, cfg.OwnerHeader)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: strings.Join(allowHeaders, ", "),
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.SendString(cfg.Version)
	})

	parser, err := NewHTTPRequestParser()
	if err != nil {
		return nil, err
	}

	auth, err := newAuthMiddleware(cfg)
	if err != nil {
		return nil, err
	}

	registerDatasetRoutes(app.Group("/api", auth), datasets, parser)

	return app, nil
}

// Launch serves the API until ctx is cancelled. The database schema is migrated
// on startup.
func Launch(ctx context.Context, log *logrus.Logger, cfg *config.Config) (err error) {
	store, err := sql.NewSQLStore(log, cfg)
	if err != nil {
		return err
	}

	files, err := storage.New(ctx, cfg)
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			return multierror.Append(err, fmt.Errorf("failed to close store: %w", closeErr))
		}
		return err
	}

	defer func() {
		var result *multierror.Error
		if err != nil {
			result = multierror.Append(result, err)
		}
		if closeErr := files.Close(); closeErr != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close file storage: %w", closeErr))
		}
		if closeErr := store.Close(); closeErr != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close store: %w", closeErr))
		}
		err = result.ErrorOrNil()
	}()

	if err := store.Migrate(); err != nil {
		return err
	}

	app, err := NewApp(cfg, log, service.NewDatasetService(log, cfg, store, files))
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout.Duration); err != nil {
			log.Errorf("Failed to gracefully shutdown equipviz server: %v", err)
		}
	}()

	log.Infof("equipviz %s listening on %s", cfg.Version, cfg.Address)

	if err := app.Listen(cfg.Address); err != nil {
		return fmt.Errorf("failed to start equipviz server: %w", err)
	}

	return nil
}
