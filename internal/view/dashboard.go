package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"insightedge/internal/dataset"
	"insightedge/internal/model"
	"insightedge/internal/narrative"
)

var (
	// ErrBadDate is returned when the date selector cannot be parsed.
	ErrBadDate = errors.New("view: invalid date")
	// ErrUnavailable is returned when a page needs a collaborator the dashboard was built without.
	ErrUnavailable = errors.New("view: page unavailable")
)

// Render outcomes reported to the Observer.
const (
	OutcomeOK       = "ok"
	OutcomeNoData   = "no_data"
	OutcomeDegraded = "degraded"
	OutcomeError    = "error"
)

// Predictor classifies one feature vector.
type Predictor interface {
	Predict(vec dataset.FeatureVector) (model.Prediction, error)
}

// Narrator generates the insight text.
type Narrator interface {
	Generate(ctx context.Context, req narrative.Request) (string, error)
}

// Observer receives render events. metrics.Recorder implements it.
type Observer interface {
	ViewRendered(page, outcome string)
	Predicted(direction string)
	NarrativeRequested(outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ViewRendered(string, string) {}

func (nopObserver) Predicted(string) {}

func (nopObserver) NarrativeRequested(string, time.Duration) {}

// Options assemble a Dashboard.
type Options struct {
	Dataset     *dataset.Dataset
	Predictor   Predictor
	Narrator    Narrator
	MaxTokens   int
	Temperature float64
	// FailOnNarrativeError fails the insight view instead of degrading it.
	FailOnNarrativeError bool
	Observer             Observer
}

// Dashboard is the application context shared by every request. It is
// built once and never mutated.
type Dashboard struct {
	data        *dataset.Dataset
	predictor   Predictor
	narrator    Narrator
	maxTokens   int
	temperature float64
	failOnError bool
	observer    Observer
	logger      zerolog.Logger
}

// Request selects a page and, for date scoped pages, a date. A zero Date
// selects the most recent record.
type Request struct {
	Page Page
	Date time.Time
}

// ParseRequest builds a Request from its textual selectors.
func ParseRequest(page, date string) (Request, error) {
	p, err := ParsePage(page)
	if err != nil {
		return Request{}, err
	}
	req := Request{Page: p}
	if date == "" {
		return req, nil
	}
	t, err := dataset.ParseDate(date)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrBadDate, err)
	}
	req.Date = t
	return req, nil
}

// NewDashboard validates the collaborators. Predictor and Narrator may be nil
// for surfaces that never render the insight page.
func NewDashboard(opts Options, logger zerolog.Logger) (*Dashboard, error) {
	if opts.Dataset == nil {
		return nil, errors.New("dashboard requires a dataset")
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Dashboard{
		data:        opts.Dataset,
		predictor:   opts.Predictor,
		narrator:    opts.Narrator,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		failOnError: opts.FailOnNarrativeError,
		observer:    observer,
		logger:      logger.With().Str("component", "view").Logger(),
	}, nil
}

// Dataset exposes the loaded records.
func (d *Dashboard) Dataset() *dataset.Dataset {
	return d.data
}

// Render evaluates exactly one page.
func (d *Dashboard) Render(ctx context.Context, req Request) (Result, error) {
	res := Result{Page: req.Page, Title: req.Page.Title(), Footer: Footer}
	outcome := OutcomeOK
	var err error

	switch req.Page {
	case About:
		res.About = aboutView()
	case TrendChart:
		res.Trend = trendView(d.data.Records())
	case SelectedDateData:
		rec, ok := d.resolve(req, &res)
		if !ok {
			outcome = OutcomeNoData
			break
		}
		res.Row = rowView(rec)
	case InsightPrediction:
		rec, ok := d.resolve(req, &res)
		if !ok {
			outcome = OutcomeNoData
			break
		}
		res.Insight, err = d.insight(ctx, rec)
		if err == nil && res.Insight.Degraded() {
			outcome = OutcomeDegraded
		}
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownPage, int(req.Page))
	}

	if err != nil {
		outcome = OutcomeError
	}
	d.observer.ViewRendered(req.Page.Slug(), outcome)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (d *Dashboard) resolve(req Request, res *Result) (dataset.MarketRecord, bool) {
	first, last := d.data.Range()
	selected := req.Date
	if selected.IsZero() {
		selected = last
	}
	res.Picker = &DatePicker{
		Min:      dataset.FormatDate(first),
		Max:      dataset.FormatDate(last),
		Selected: dataset.FormatDate(selected),
	}

	rec, ok := d.data.Resolve(selected)
	if !ok {
		res.Warning = NoDataWarning
		d.logger.Debug().Str("page", req.Page.Slug()).Str("date", res.Picker.Selected).Msg("no record for date")
	}
	return rec, ok
}

func (d *Dashboard) insight(ctx context.Context, rec dataset.MarketRecord) (*InsightView, error) {
	if d.predictor == nil || d.narrator == nil {
		return nil, fmt.Errorf("%w: insight needs a predictor and a narrator", ErrUnavailable)
	}
	date := dataset.FormatDate(rec.Date)
	pred, err := d.predictor.Predict(rec.Features())
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", date, err)
	}
	d.observer.Predicted(pred.Direction.String())

	v := &InsightView{
		Date:        date,
		Direction:   pred.Direction,
		Label:       pred.Label,
		Probability: pred.Probability,
	}

	start := time.Now()
	text, err := d.narrator.Generate(ctx, narrative.Request{
		Prompt:      narrative.BuildPrompt(rec, pred.Direction),
		MaxTokens:   d.maxTokens,
		Temperature: d.temperature,
	})
	elapsed := time.Since(start)
	if err != nil {
		kind := narrative.KindOf(err)
		if kind == "" {
			kind = narrative.KindService
		}
		d.observer.NarrativeRequested(string(kind), elapsed)
		d.logger.Warn().Err(err).Str("date", date).Str("kind", string(kind)).Msg("narrative generation failed")
		if d.failOnError {
			return nil, fmt.Errorf("generate narrative for %s: %w", date, err)
		}
		v.Notice = narrative.Notice(err)
		return v, nil
	}

	d.observer.NarrativeRequested(OutcomeOK, elapsed)
	v.Narrative = text
	return v, nil
}
