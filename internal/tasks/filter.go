package tasks

import (
	"github.com/desertthunder/scorg/internal/models"
)

// MatchesLength reports whether item falls in band. [models.AllLengths] matches everything.
func MatchesLength(item models.Item, band models.LengthBand) bool {
	if band == models.AllLengths {
		return true
	}
	return models.BandOf(item.Duration) == band
}

// MatchesScope reports whether item was created inside interval. A nil interval matches everything.
func MatchesScope(item models.Item, interval *models.DateInterval) bool {
	if interval == nil {
		return true
	}
	return interval.Contains(item.CreatedAt)
}

// Accept combines both predicates.
func Accept(item models.Item, band models.LengthBand, interval *models.DateInterval) bool {
	return MatchesLength(item, band) && MatchesScope(item, interval)
}
