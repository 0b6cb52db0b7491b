package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/swatch/internal/colour"
)

type convertOptions struct {
	format  string
	preview bool
}

func newConvertCmd() *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert <colour>",
		Short: "Convert a colour between hex, RGB and HSV",
		Long: `Convert a colour between its hexadecimal, RGB and HSV forms.

The colour may be given as six hex digits (with or without a leading #),
as rgb(r, g, b) with channels 0-255, or as hsv(h, s, v) with hue in degrees
and saturation and brightness in percent. Out-of-range components are clamped
and hue wraps around the colour wheel.

Examples:
  # Show every form of a hex colour
  swatch convert "#3366CC"

  # Convert HSV to hex only
  swatch convert "hsv(220, 75%, 80%)" --format hex

  # Machine-readable output
  swatch convert "rgb(51, 102, 204)" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format (table, hex, rgb, hsv, json)")
	cmd.Flags().BoolVar(&opts.preview, "preview", true, "show a colour preview when writing to a terminal")
	return cmd
}

// convertResult is the JSON form of a converted colour.
type convertResult struct {
	Hex string     `json:"hex"`
	RGB colour.RGB `json:"rgb"`
	HSV colour.HSV `json:"hsv"`
}

func runConvert(cmd *cobra.Command, opts *convertOptions, value string) error {
	rgb, hsv, err := parseColourValue(value)
	if err != nil {
		return fmt.Errorf("invalid colour: %w", err)
	}

	out := cmd.OutOrStdout()
	switch opts.format {
	case "hex":
		fmt.Fprintf(out, "#%s\n", rgb.Hex())
	case "rgb":
		fmt.Fprintln(out, rgb.String())
	case "hsv":
		fmt.Fprintln(out, formatHSV(hsv))
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(convertResult{Hex: rgb.Hex(), RGB: rgb, HSV: roundHSV(hsv)})
	case "table":
		table := NewTable([]string{"Format", "Value"})
		if opts.preview && isTerminal(out) {
			table.AddRow([]string{"preview", colour.ColourPreview(rgb, 8)})
		}
		table.AddRow([]string{"hex", "#" + rgb.Hex()})
		table.AddRow([]string{"rgb", rgb.String()})
		table.AddRow([]string{"hsv", formatHSV(hsv)})
		fmt.Fprint(out, table.Render())
	default:
		return fmt.Errorf("unsupported format: %s", opts.format)
	}
	return nil
}

// parseColourValue accepts hex, rgb(r, g, b) or hsv(h, s, v). Only hex is
// rejected when malformed: rgb channels are rounded and clamped to [0, 255],
// hue wraps onto [0, 360) and saturation and value clamp to [0, 100]. For HSV
// input the given hue is kept even when the colour is achromatic.
func parseColourValue(s string) (colour.RGB, colour.HSV, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "rgb(") && strings.HasSuffix(lower, ")"):
		vals, err := parseArgs(lower[len("rgb("):len(lower)-1], false)
		if err != nil {
			return colour.RGB{}, colour.HSV{}, err
		}
		ch := func(v float64) int { return int(math.Round(math.Max(0, math.Min(255, v)))) }
		rgb := colour.NewRGB(ch(vals[0]), ch(vals[1]), ch(vals[2]))
		return rgb, colour.RGBToHSV(rgb), nil

	case strings.HasPrefix(lower, "hsv(") && strings.HasSuffix(lower, ")"):
		vals, err := parseArgs(lower[len("hsv("):len(lower)-1], true)
		if err != nil {
			return colour.RGB{}, colour.HSV{}, err
		}
		hsv := colour.HSV{H: vals[0], S: vals[1], V: vals[2]}.Clamp()
		return hsv.RGB(), hsv, nil

	default:
		rgb, err := colour.ParseHex(s)
		if err != nil {
			return colour.RGB{}, colour.HSV{}, err
		}
		return rgb, colour.RGBToHSV(rgb), nil
	}
}

// parseArgs splits exactly three comma-separated numbers. Percent and degree
// suffixes are accepted when allowUnits is set.
func parseArgs(s string, allowUnits bool) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, errors.New("expected three comma-separated values")
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if allowUnits {
			p = strings.TrimSuffix(strings.TrimSuffix(p, "%"), "°")
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return out, fmt.Errorf("invalid number: %q", parts[i])
		}
		out[i] = v
	}
	return out, nil
}

func roundHSV(c colour.HSV) colour.HSV {
	r := func(v float64) float64 { return math.Round(v*10) / 10 }
	return colour.HSV{H: colour.WrapHue(r(c.H)), S: r(c.S), V: r(c.V)}
}

func formatHSV(c colour.HSV) string {
	c = roundHSV(c)
	return fmt.Sprintf("hsv(%s, %s%%, %s%%)", trimFloat(c.H), trimFloat(c.S), trimFloat(c.V))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
