package narrative

import (
	"fmt"
	"math"
	"strings"

	"insightedge/internal/dataset"
	"insightedge/internal/model"
)

// BuildPrompt fills the insight template with one record and its prediction.
func BuildPrompt(rec dataset.MarketRecord, direction model.Direction) string {
	b := strings.Builder{}
	b.WriteString("Generate a detailed financial insight based on the following data:\n\n")
	b.WriteString(fmt.Sprintf("- Date: %s\n", dataset.FormatDate(rec.Date)))
	b.WriteString(fmt.Sprintf("- Closing Price: %s\n", rec.Close.StringFixed(2)))
	b.WriteString(fmt.Sprintf("- Sentiment: %s with average score %s from %d news headlines\n",
		rec.SentimentLabel, fixed2(rec.AvgSentiment), rec.HeadlineCount))
	b.WriteString(fmt.Sprintf("- RSI: %s\n", fixed2(rec.RSI)))
	b.WriteString(fmt.Sprintf("- MACD: %s\n", fixed2(rec.MACD)))
	b.WriteString(fmt.Sprintf("- Model Prediction: %s\n\n", direction))
	b.WriteString("Include market interpretation, technical outlook, and investor recommendation in a professional tone.\n")
	return b.String()
}

func fixed2(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f)
}
