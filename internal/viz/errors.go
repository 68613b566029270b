package viz

import "errors"

var (
	// ErrUnsupportedChartKind is returned for chart types the renderer
	// does not know.
	ErrUnsupportedChartKind = errors.New("unsupported chart kind")

	// ErrEmptyData is returned when there are no rows to plot.
	ErrEmptyData = errors.New("no data to plot")

	// ErrInvalidData is returned when the data payload cannot be parsed
	// into rows of named fields.
	ErrInvalidData = errors.New("invalid chart data")
)
