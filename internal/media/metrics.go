package media

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// operationsTotal counts calls to the media host by operation and outcome
// (ok, not_found, error).
var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gamelibrary_media_operations_total",
		Help: "Media host operations by outcome",
	},
	[]string{"operation", "outcome"},
)

func observe(op string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrAssetNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	operationsTotal.WithLabelValues(op, outcome).Inc()
}
