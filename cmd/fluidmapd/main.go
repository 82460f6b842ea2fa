// Command fluidmapd serves fluidic graphs and mapping runs over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluidlab/fluidmap/ferrors"
	"github.com/fluidlab/fluidmap/fluidic"
	"github.com/fluidlab/fluidmap/internal/config"
	"github.com/fluidlab/fluidmap/mapping"
	"github.com/fluidlab/fluidmap/store"
)

func main() {
	cfgPath := os.Getenv("FLUIDMAPD_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("FLUIDMAP_DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	var st store.Store = store.NewPGStore(pool)

	app := fiber.New()

	app.Post("/schema", func(c fiber.Ctx) error {
		if err := st.CreateSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := st.DropSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	app.Post("/graphs", func(c fiber.Ctx) error {
		body := c.Body()
		g, err := fluidic.ParseGraphJSON(body)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid graph document: " + err.Error()})
		}
		if err := st.SaveGraph(c.Context(), store.GraphRecord{Name: g.Name(), Document: body}); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(fiber.Map{"name": g.Name()})
	})

	app.Get("/graphs/:name", func(c fiber.Ctx) error {
		g, err := st.GetGraph(c.Context(), c.Params("name"))
		if errors.Is(err, store.ErrGraphNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "graph not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		var doc map[string]any
		if err := json.Unmarshal(g.Document, &doc); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "stored document invalid: " + err.Error()})
		}
		return c.JSON(doc)
	})

	app.Post("/mappings", func(c fiber.Ctx) error {
		var req struct {
			SketchName  string `json:"sketch_name"`
			MachineName string `json:"machine_name"`
		}
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}

		sketchRec, err := st.GetGraph(c.Context(), req.SketchName)
		if errors.Is(err, store.ErrGraphNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "sketch not found: " + req.SketchName})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		machineRec, err := st.GetGraph(c.Context(), req.MachineName)
		if errors.Is(err, store.ErrGraphNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "machine not found: " + req.MachineName})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		sketch, err := fluidic.ParseGraphJSON(sketchRec.Document)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "stored sketch document invalid: " + err.Error()})
		}
		machine, err := fluidic.ParseGraphJSON(machineRec.Document)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "stored machine document invalid: " + err.Error()})
		}

		eng := mapping.NewEngine(sketch, machine)
		result, err := eng.StartMapping(c.Context(), nil)
		switch {
		case errors.Is(err, ferrors.ErrIncompatibleSketch):
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ferrors.ErrInfeasible):
			return c.Status(409).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ferrors.ErrCancelled), errors.Is(err, ferrors.ErrTimeout):
			return c.Status(504).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		record := store.MappingRecord{
			SketchName:  req.SketchName,
			MachineName: req.MachineName,
			Nodes:       make(map[string]string),
			Edges:       make(map[string]string),
		}
		for _, sc := range sketch.Containers() {
			if mid, ok := result.MappedContainerID(sc.ID); ok {
				record.Nodes[fmt.Sprintf("%d", sc.ID)] = fmt.Sprintf("%d", mid)
			}
		}
		for _, se := range sketch.Core().Edges() {
			if flow, ok := result.MappedEdge(se); ok {
				record.Edges[se.String()] = flow.ToText()
			}
		}

		id, err := st.SaveMapping(c.Context(), record)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		record.ID = id
		return c.Status(201).JSON(record)
	})

	app.Get("/mappings/:id", func(c fiber.Ctx) error {
		m, err := st.GetMapping(c.Context(), c.Params("id"))
		if errors.Is(err, store.ErrMappingNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "mapping not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(m)
	})

	log.Fatal(app.Listen(cfg.ListenAddr))
}
