package server

import (
	"bufio"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"feedreader/feeds"
	"feedreader/models"
	"feedreader/page"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

//go:embed dist/*
var dist embed.FS

type ServerConfig struct {
	// The page served at /
	Page *page.Page

	// The loader rendering into Page
	Loader *feeds.Loader

	// Broadcast channel to pass load events to SSE clients
	Broadcaster *Broadcaster

	// How long a load request waits for completion
	LoadTimeout time.Duration

	// Interval between SSE keep-alive pings
	PingInterval time.Duration
}

type feedView struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

type entriesView struct {
	Title   string   `json:"title"`
	Entries []string `json:"entries"`
}

type menuView struct {
	Hidden bool `json:"hidden"`
}

// Returns a fiber.App instance to be used as an HTTP server for the feed reader
func Server(config *ServerConfig) *fiber.App {
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = 30 * time.Second
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 5 * time.Second
	}

	bc := config.Broadcaster
	registry := config.Loader.Registry()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	// The registry never changes while serving, so its listing can be cached
	app.Use(cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || c.Path() != "/api/feeds"
		},
		Expiration: time.Minute,
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		html, err := config.Page.HTML()
		if err != nil {
			log.WithField("error", err).Error("Error rendering page")
			return c.Status(fiber.StatusInternalServerError).SendString("Error rendering page")
		}
		c.Type("html", "utf-8")
		return c.SendString(html)
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/api/feeds", func(c *fiber.Ctx) error {
		views := []feedView{}
		for i, feed := range registry.Feeds() {
			views = append(views, feedView{Index: i, Name: feed.Name, URL: feed.URL})
		}
		return c.JSON(views)
	})

	app.Post("/api/feeds/:index/load", func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid feed index")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), config.LoadTimeout)
		defer cancel()

		// The load outlives the request if waiting times out
		result, err := config.Loader.Load(context.Background(), index).Wait(ctx)
		switch {
		case errors.Is(err, feeds.ErrFeedNotFound):
			return c.Status(fiber.StatusNotFound).SendString("Invalid feed")
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			// Only the wait expired, the fetch itself may still succeed
			return c.Status(fiber.StatusGatewayTimeout).SendString("Timed out waiting for feed")
		case err != nil:
			return c.Status(fiber.StatusBadGateway).JSON(result.Event())
		}
		return c.JSON(result.Event())
	})

	app.Post("/api/feeds/:index/select", func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil || index < 0 || index >= registry.Len() {
			return c.Status(fiber.StatusNotFound).SendString("Invalid feed")
		}

		if err := config.Page.Click(fmt.Sprintf(`.feed-link[data-id="%d"]`, index)); err != nil {
			return c.Status(fiber.StatusNotFound).SendString("Invalid feed")
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	app.Get("/api/entries", func(c *fiber.Ctx) error {
		return c.JSON(entriesView{
			Title:   config.Page.Text(page.HeaderTitleSelector),
			Entries: config.Page.Texts(page.EntrySelector),
		})
	})

	app.Post("/api/menu/toggle", func(c *fiber.Ctx) error {
		if err := config.Page.Click(page.MenuIconSelector); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Menu icon missing")
		}
		return c.JSON(menuView{Hidden: config.Page.HasClass(page.BodySelector, page.MenuHiddenClass)})
	})

	app.Delete("/events", func(c *fiber.Ctx) error {
		key := c.Query("key", "")
		bc.RemoveClient(key)
		return c.Status(200).SendString("OK")
	})

	app.Get("/events", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		// Unique client key
		key := uuid.New().String()
		events := make(chan models.LoadEvent, 10) // Buffered channel

		bc.AddClient(key, events)

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			alive := time.NewTicker(config.PingInterval)
			defer alive.Stop()
			defer func() {
				log.Infof("Cleaning up SSE stream for client: %s", key)
				bc.RemoveClient(key)
			}()

			// Send initial event with client key
			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-alive.C:
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case event, ok := <-events:
					if !ok {
						log.Warnf("Event channel closed for client %s", key)
						return
					}
					if err := writeEvent(w, "load", event); err != nil {
						log.Warnf("Failed to send load event to client %s: %v", key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	// Serve the stylesheet and other static assets
	app.Use("/", filesystem.New(filesystem.Config{
		Browse:     false,
		Root:       http.FS(dist),
		PathPrefix: "/dist",
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}))

	return app
}

// writeEvent writes one SSE event with a JSON payload and flushes it
func writeEvent(w *bufio.Writer, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return w.Flush()
}
