package viz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"salesagent/internal/tool"
)

// Registry names of the two chart tools.
const (
	ToolName      = "create_chart"
	MultiToolName = "create_multi_series_chart"
)

const toolDescription = `Create a chart from data and save it to a file.

Takes data (typically from query_sales_database results) and renders a
visualization. Returns the path of the saved chart file.

data must be a JSON string: either a list of objects like
'[{"month": "Jan", "sales": 1000}, {"month": "Feb", "sales": 1500}]'
or a flat object like '{"Jan": 1000, "Feb": 1500}'.

chart_type is one of: bar, line, pie.`

const multiToolDescription = `Create a chart with multiple data series (multiple lines or stacked bars).

Useful for comparing multiple metrics over time or across categories.

data must be a JSON list of objects; the first field is the x axis and
every remaining numeric field becomes its own series, for example
'[{"month": "Jan", "sales": 1000, "costs": 800}, {"month": "Feb", "sales": 1500, "costs": 900}]'.

chart_type is "line" for a multi-line chart or "bar" for a stacked bar chart.`

type chartArgs struct {
	Data      string `json:"data" jsonschema:"JSON data to plot: a list of objects or a flat category-to-value object"`
	ChartType string `json:"chart_type,omitempty" jsonschema:"chart type: bar, line or pie (default bar)"`
	Title     string `json:"title,omitempty" jsonschema:"chart title"`
	XLabel    string `json:"x_label,omitempty" jsonschema:"x axis label"`
	YLabel    string `json:"y_label,omitempty" jsonschema:"y axis label"`
	Filename  string `json:"filename,omitempty" jsonschema:"custom file name (auto-generated when omitted)"`
}

// Tool renders chart files into a fixed output directory.
type Tool struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewTool creates the chart tool writing into dir, creating it if needed.
func NewTool(dir string, logger *slog.Logger) (*Tool, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating charts directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{dir: dir, logger: logger, now: time.Now}, nil
}

// Specs returns registry descriptors for both chart tools.
func (t *Tool) Specs() ([]tool.Spec, error) {
	schema, err := jsonschema.For[chartArgs](nil)
	if err != nil {
		return nil, fmt.Errorf("building schema: %w", err)
	}
	return []tool.Spec{
		{
			Name:        ToolName,
			Description: toolDescription,
			InputSchema: schema,
			Handler:     t.handleSingle,
		},
		{
			Name:        MultiToolName,
			Description: multiToolDescription,
			InputSchema: schema,
			Handler:     t.handleMulti,
		},
	}, nil
}

func (t *Tool) handleSingle(ctx context.Context, args json.RawMessage) (string, error) {
	return t.handle(ctx, args, false)
}

func (t *Tool) handleMulti(ctx context.Context, args json.RawMessage) (string, error) {
	return t.handle(ctx, args, true)
}

func (t *Tool) handle(_ context.Context, args json.RawMessage, multi bool) (string, error) {
	var a chartArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}

	kind := Kind(strings.ToLower(strings.TrimSpace(a.ChartType)))
	if kind == "" {
		if multi {
			kind = KindLine
		} else {
			kind = KindBar
		}
	}

	table, err := ParseTable(a.Data)
	if err != nil {
		return "", err
	}

	path := t.chartPath(a.Filename, kind, multi)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating chart file: %w", err)
	}
	defer func() { _ = f.Close() }()

	title := a.Title
	if title == "" {
		title = "Chart"
	}
	if multi {
		err = RenderMulti(kind, title, a.XLabel, a.YLabel, table, f)
	} else {
		err = Render(kind, title, a.XLabel, a.YLabel, table, f)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}

	t.logger.Debug("chart rendered", "path", path, "kind", kind, "rows", len(table.Rows))
	return fmt.Sprintf("Chart saved successfully to: %s", path), nil
}

// chartPath builds the output path, defaulting to a timestamped name so
// repeated renders never clobber each other.
func (t *Tool) chartPath(filename string, kind Kind, multi bool) string {
	if filename == "" {
		stamp := t.now().Format("20060102_150405")
		if multi {
			filename = fmt.Sprintf("multi_%s_%s.png", kind, stamp)
		} else {
			filename = fmt.Sprintf("%s_%s.png", kind, stamp)
		}
	}
	if !strings.HasSuffix(filename, ".png") {
		filename += ".png"
	}
	return filepath.Join(t.dir, filepath.Base(filename))
}
