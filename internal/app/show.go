package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"insightedge/internal/view"
)

// Show prints every field of the record for one date.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	req, err := view.ParseRequest(view.SelectedDateData.Slug(), opts.Date)
	if err != nil {
		return err
	}
	data, err := a.loadDataset(ctx)
	if err != nil {
		return err
	}
	// The data view never reaches the model or the narrator, so neither is loaded.
	dash, err := view.NewDashboard(view.Options{Dataset: data}, a.Logger)
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

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Field\t%s\n", res.Row.Date)
	for _, field := range res.Row.Fields {
		fmt.Fprintf(writer, "%s\t%s\n", field.Name, sanitizeInline(field.Value))
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
