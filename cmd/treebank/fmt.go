package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jward/treebank/tree"
)

var flagPretty bool

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>",
	Short: "Rewrite a treebank file in canonical bracketed notation",
	Long:  "Decodes every tree in the file and prints it back one tree per line, siblings separated by single spaces. With --pretty each constituent starts on its own indented line. Output is always text.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFmt,
}

func init() {
	fmtCmd.Flags().BoolVar(&flagPretty, "pretty", false, "indent nested constituents")
}

func runFmt(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	trees, err := tree.ParseForest("", string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	s := newStyles(colorEnabled(flagColor, os.Stdout))
	for _, t := range trees {
		if err := writeTree(cmd.OutOrStdout(), t.Root(), s, flagPretty); err != nil {
			return fmt.Errorf("writing %s: %w", args[0], err)
		}
	}
	return nil
}

// styles holds color formatters for bracketed output.
type styles struct {
	label *color.Color
	token *color.Color
	empty *color.Color
	paren *color.Color
}

// newStyles creates color formatters; enabled=false produces plain text.
func newStyles(enabled bool) *styles {
	s := &styles{
		label: color.New(color.Bold, color.FgHiBlue),
		token: color.New(color.FgHiWhite),
		empty: color.New(color.Faint),
		paren: color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{s.label, s.token, s.empty, s.paren} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

var validColors = []string{"auto", "always", "never"}

// validateColor checks that the --color flag value is recognized.
func validateColor(mode string) error {
	for _, c := range validColors {
		if mode == c {
			return nil
		}
	}
	return fmt.Errorf("invalid color %q: must be %s", mode, strings.Join(validColors, ", "))
}

// colorEnabled resolves --color. In auto mode colors are used only when f is
// a terminal and NO_COLOR is unset.
func colorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""
	}
}

// format returns the tree.Format that renders through s.
func (s *styles) format(pretty bool) tree.Format {
	f := tree.Format{
		Label: func(v string) string { return s.label.Sprint(v) },
		Token: func(v string) string { return s.token.Sprint(v) },
		Empty: func(v string) string { return s.empty.Sprint(v) },
		Paren: func(v string) string { return s.paren.Sprint(v) },
	}
	if pretty {
		f.Indent = "  "
	}
	return f
}

// writeTree writes one tree followed by a newline.
func writeTree(w io.Writer, root *tree.Node, s *styles, pretty bool) error {
	if err := tree.EncodeTo(w, root, s.format(pretty)); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
