// Package server serves the generated artifacts over HTTP: the map layers,
// the ranked target list and the species dossiers.
package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/birdtargets/bird-targets/internal/conf"
	"github.com/birdtargets/bird-targets/internal/errors"
	"github.com/birdtargets/bird-targets/internal/export"
	"github.com/birdtargets/bird-targets/internal/logging"
	"github.com/birdtargets/bird-targets/internal/observability"
	"github.com/birdtargets/bird-targets/internal/scoring"
)

// availableLayers are the map layers the server exposes.
var availableLayers = []string{"public_lands", "checklist_density", "survey_targets"}

var speciesCodePattern = regexp.MustCompile(`^[a-z0-9]+$`)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "server.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "server", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize server file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "server")
		closeLogger = func() error { return nil }
	}
}

// Server is the local map server.
type Server struct {
	echo     *echo.Echo
	settings *conf.Settings
	outPath  string
	metrics  *observability.Metrics
}

// New builds the server with its routes registered. The metrics argument may
// be nil, in which case the /metrics endpoint is not mounted.
func New(settings *conf.Settings, metrics *observability.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if settings.Server.Debug {
		e.Use(middleware.Logger())
	}

	s := &Server{
		echo:     e,
		settings: settings,
		outPath:  settings.Output.Path,
		metrics:  metrics,
	}

	e.GET("/", s.handleIndex)
	e.GET("/healthz", s.handleHealth)
	e.GET("/layers", s.handleLayers)
	e.GET("/layers/:name", s.handleLayer)
	e.GET("/targets", s.handleTargets)
	e.GET("/dossiers/:code", s.handleDossier)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	return s
}

// Handler exposes the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.settings.Server.Port)
	logger.Info("starting map server", "addr", addr, "out_path", s.outPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), echoShutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.HTML(http.StatusOK, indexHTML)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLayers(c echo.Context) error {
	return c.JSON(http.StatusOK, availableLayers)
}

func (s *Server) handleLayer(c echo.Context) error {
	name := c.Param("name")
	known := false
	for _, layer := range availableLayers {
		if layer == name {
			known = true
			break
		}
	}
	if !known {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown layer"})
	}

	path := filepath.Join(s.outPath, "layers", name+".geojson")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Layer file not found"})
		}
		logger.Error("reading layer file", "layer", name, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read layer"})
	}
	return c.JSONBlob(http.StatusOK, data)
}

// handleTargets serves the ranked target list. An optional month query
// parameter filters to species whose best months include it; rank order is
// preserved.
func (s *Server) handleTargets(c echo.Context) error {
	path := filepath.Join(s.outPath, export.RankedCSVName)
	scores, err := export.ReadRankedCSV(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.JSON(http.StatusOK, []scoring.SpeciesScore{})
		}
		logger.Error("reading ranked targets", "path", path, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read targets"})
	}

	if monthParam := c.QueryParam("month"); monthParam != "" {
		month, err := strconv.Atoi(monthParam)
		if err != nil || month < 1 || month > 12 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "month must be 1-12"})
		}
		scores = scoring.FilterByMonth(scores, month)
	}

	if scores == nil {
		scores = []scoring.SpeciesScore{}
	}
	return c.JSON(http.StatusOK, scores)
}

func (s *Server) handleDossier(c echo.Context) error {
	code := c.Param("code")
	if !speciesCodePattern.MatchString(code) {
		return c.String(http.StatusNotFound, "Dossier not found")
	}

	path := filepath.Join(s.outPath, "species_dossiers", code+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return c.String(http.StatusNotFound, "Dossier not found")
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", data)
}

// Close releases the server's log file.
func Close() {
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing server logger: %v", err)
		}
	}
}
