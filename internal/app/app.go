package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"insightedge/internal/config"
	"insightedge/internal/dataset"
	"insightedge/internal/model"
	"insightedge/internal/narrative"
	"insightedge/internal/version"
	"insightedge/internal/view"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives command reports.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) loadDataset(ctx context.Context) (*dataset.Dataset, error) {
	loader, err := dataset.NewLoader(a.Config.Dataset.Options(), a.Logger)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx)
}

func (a *App) loadPredictor() (*model.Predictor, error) {
	return model.Load(a.Config.Model.Path, a.Config.Model.Threshold, a.Logger)
}

func (a *App) newNarrator() *narrative.Client {
	cfg := a.Config.Narrative
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	if !a.Config.HasNarrativeKey() {
		a.Logger.Warn().Msg("narrative api key not configured; insight narratives will be unavailable")
	}
	return narrative.NewClient(narrative.Options{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		UserAgent:   userAgent,
	}, a.Logger)
}

// openDashboard loads the dataset and the model once and wires the view layer.
// Either load failing is fatal to the command.
func (a *App) openDashboard(ctx context.Context, observer view.Observer) (*view.Dashboard, error) {
	data, err := a.loadDataset(ctx)
	if err != nil {
		return nil, err
	}
	predictor, err := a.loadPredictor()
	if err != nil {
		return nil, err
	}

	return view.NewDashboard(view.Options{
		Dataset:              data,
		Predictor:            predictor,
		Narrator:             a.newNarrator(),
		MaxTokens:            a.Config.Narrative.MaxTokens,
		Temperature:          a.Config.Narrative.Temperature,
		FailOnNarrativeError: a.Config.Narrative.FailViewOnError,
		Observer:             observer,
	}, a.Logger)
}

// InsightOptions configure the insight command.
type InsightOptions struct {
	Date string
	JSON bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Date string
	JSON bool
}

// ExportOptions hold parameters for exporting the trend series.
type ExportOptions struct {
	PNGPath string
	SVGPath string
	CSVPath string
	Width   int
	Height  int
}
