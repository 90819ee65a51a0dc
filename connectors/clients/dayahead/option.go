package dayahead

import (
	"fmt"
	"time"

	"github.com/Sukarth/wastewater-optimization/connectors"
)

func WithStartDate(startDate time.Time) connectors.Option {
	return func(c connectors.PriceClient) error {
		if d, ok := c.(*Client); ok {
			d.startDate = startDate
			return nil
		}
		return fmt.Errorf(connectors.ErrIncompatibleOption, "WithStartDate", "day_ahead")
	}
}

func WithEndDate(endDate time.Time) connectors.Option {
	return func(c connectors.PriceClient) error {
		if d, ok := c.(*Client); ok {
			d.endDate = endDate
			return nil
		}
		return fmt.Errorf(connectors.ErrIncompatibleOption, "WithEndDate", "day_ahead")
	}
}

// WithBaseURL points the client at a non-default API host, mainly for tests.
func WithBaseURL(url string) connectors.Option {
	return func(c connectors.PriceClient) error {
		if d, ok := c.(*Client); ok {
			d.baseURL = url
			return nil
		}
		return fmt.Errorf(connectors.ErrIncompatibleOption, "WithBaseURL", "day_ahead")
	}
}
