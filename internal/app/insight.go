package app

import (
	"context"
	"encoding/json"
	"fmt"

	"insightedge/internal/view"
)

// Insight prints the prediction and narrative for one date.
func (a *App) Insight(ctx context.Context, opts InsightOptions) error {
	req, err := view.ParseRequest(view.InsightPrediction.Slug(), opts.Date)
	if err != nil {
		return err
	}
	dash, err := a.openDashboard(ctx, nil)
	if err != nil {
		return err
	}
	res, err := dash.Render(ctx, req)
	if err != nil {
		return err
	}
	if opts.JSON {
		return a.writeJSON(res)
	}

	if res.Empty() {
		fmt.Fprintln(a.Out, res.Warning)
		return nil
	}
	v := res.Insight
	fmt.Fprintf(a.Out, "Insight for %s\n\n", v.Date)
	if v.Degraded() {
		fmt.Fprintln(a.Out, v.Notice)
	} else {
		fmt.Fprintln(a.Out, v.Narrative)
	}
	fmt.Fprintf(a.Out, "\nModel predicts: %s (probability of a rise %.1f%%)\n", v.Direction, v.Probability*100)
	return nil
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
