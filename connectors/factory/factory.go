package factory

import (
	"fmt"

	"github.com/Sukarth/wastewater-optimization/connectors"
	"github.com/Sukarth/wastewater-optimization/connectors/clients/dayahead"
)

const (
	IDDayAhead = "day_ahead"
)

var errUnknownClient = "unknown connector id: %s"

func NewPriceClient(id string) (connectors.PriceClient, error) {
	switch id {
	case IDDayAhead:
		return &dayahead.Client{}, nil
	default:
		return nil, fmt.Errorf(errUnknownClient, id)
	}
}
