package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"

	"github.com/s0up4200/iptvkit/filter"
	"github.com/s0up4200/iptvkit/xtream"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
)

// styled renders s with style only when stdout is a terminal
func styled(style lipgloss.Style, s string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return s
	}
	return style.Render(s)
}

// listing describes which fields identify and name the items of a payload
type listing struct {
	noun    string
	idField string
}

var (
	categoryListing = listing{noun: "categories", idField: "category_id"}
	liveListing     = listing{noun: "channels", idField: "stream_id"}
	vodListing      = listing{noun: "movies", idField: "stream_id"}
	seriesListing   = listing{noun: "series", idField: "series_id"}
)

// applyFilter compiles the --filter argument, resolving named filters from
// the config, and returns the matching items.
func applyFilter(items []any, arg string) ([]any, error) {
	if arg == "" {
		return items, nil
	}
	f, err := filter.NewCompiler().Compile(cfg.Filter(arg))
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return f.Apply(items), nil
}

func printItems(l listing, payload xtream.Payload, filterArg string) error {
	items, err := applyFilter(xtream.Items(payload), filterArg)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Printf("No %s found.\n", l.noun)
		return nil
	}

	fmt.Println(styled(headingStyle, fmt.Sprintf("Found %d %s", len(items), l.noun)))
	fmt.Println(strings.Repeat("━", 60))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fmt.Printf("%s  %s\n", styled(idStyle, fmt.Sprintf("%8s", field(fields, l.idField))), itemName(fields))
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// field renders a scalar field; providers mix numbers and strings freely
func field(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return "-"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func itemName(fields map[string]any) string {
	for _, key := range []string{"name", "category_name", "title"} {
		if s, ok := fields[key].(string); ok && s != "" {
			return s
		}
	}
	return styled(dimStyle, "(unnamed)")
}
