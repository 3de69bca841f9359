package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/boundary/internal/audit"
	"github.com/funvibe/boundary/internal/config"
	"github.com/funvibe/boundary/internal/manifest"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorDim   = "\033[2m"
)

// useColor reports whether stdout is a terminal that can take ANSI codes.
func useColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func paint(color, s string) string {
	if !useColor() {
		return s
	}
	return color + s + colorReset
}

func handleHelp() bool {
	if len(os.Args) < 2 {
		return false
	}
	if os.Args[1] != "-help" && os.Args[1] != "--help" && os.Args[1] != "help" {
		return false
	}

	fmt.Printf(`boundary %s - contract engine for opaque parametric types

Usage:
  boundary check [manifest]       validate a %s manifest
  boundary audit <db> [accessor]  list recorded violations and syntheses
  boundary version                print the engine version

With no manifest argument, check searches the current directory and its
parents for %s.
`, config.Version, config.ManifestName, config.ManifestName)
	return true
}

func handleVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	if os.Args[1] != "version" && os.Args[1] != "-version" && os.Args[1] != "--version" {
		return false
	}
	fmt.Printf("boundary %s\n", config.Version)
	return true
}

// handleCheck validates a manifest and prints what it declares.
func handleCheck() bool {
	if len(os.Args) < 2 || os.Args[1] != "check" {
		return false
	}

	path := ""
	if len(os.Args) >= 3 {
		path = os.Args[2]
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		path, err = manifest.Find(cwd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		if path == "" {
			fmt.Fprintf(os.Stderr, "No %s found in %s or any parent directory\n", config.ManifestName, cwd)
			os.Exit(1)
		}
	}

	m, err := manifest.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", paint(colorRed, err.Error()))
		os.Exit(1)
	}

	fmt.Printf("%s %s\n", paint(colorGreen, "ok"), path)
	for _, t := range m.Types {
		if len(t.Params) > 0 {
			fmt.Printf("  type %s<%s>\n", t.Name, strings.Join(t.Params, ", "))
		} else {
			fmt.Printf("  type %s\n", t.Name)
		}
		for _, acc := range m.Accessors {
			if acc.Type != t.Name {
				continue
			}
			fmt.Printf("    %s\n", formatAccessor(acc))
		}
	}
	return true
}

func formatAccessor(acc manifest.AccessorDecl) string {
	parts := make([]string, 0, len(acc.Args))
	for _, a := range acc.Args {
		parts = append(parts, formatSpec(a))
	}
	return fmt.Sprintf("%s(%s) -> %s", acc.Name, strings.Join(parts, ", "), formatSpec(acc.Result))
}

func formatSpec(spec manifest.PositionSpec) string {
	switch {
	case spec.Opaque:
		return "opaque"
	case spec.Param != "":
		return spec.Param
	default:
		return spec.Concrete
	}
}

// handleAudit lists recorded violations from an audit database, optionally
// filtered to one accessor.
func handleAudit() bool {
	if len(os.Args) < 2 || os.Args[1] != "audit" {
		return false
	}
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s audit <db> [accessor]\n", os.Args[0])
		os.Exit(1)
	}

	dbPath := os.Args[2]
	accessor := ""
	if len(os.Args) >= 4 {
		accessor = os.Args[3]
	}

	rec, err := audit.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audit database: %s\n", err)
		os.Exit(1)
	}
	defer rec.Close()

	violations, err := rec.Violations(accessor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	syntheses, err := rec.Syntheses(accessor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if len(violations) == 0 {
		fmt.Println("No violations recorded")
	}
	for _, v := range violations {
		where := fmt.Sprintf("arg %d", v.ArgIndex)
		if v.ArgIndex < 0 {
			where = "result"
		}
		fmt.Printf("%s %s %s (%s, blame %s): want %s, got %s\n",
			paint(colorDim, v.At.Format("2006-01-02 15:04:05")),
			paint(colorRed, v.Accessor),
			where, v.Param, v.Blame, v.Want, v.Got)
	}
	if len(violations) > 0 {
		fmt.Printf("\n%d violation(s)\n", len(violations))
	}

	if len(syntheses) > 0 {
		fmt.Println()
		for _, s := range syntheses {
			fmt.Printf("%s %s %s: %d check(s), wrapper %s\n",
				paint(colorDim, s.At.Format("2006-01-02 15:04:05")),
				paint(colorGreen, s.Accessor),
				s.Instantiation, s.Checks, s.WrapperID)
		}
		fmt.Printf("\n%d synthesis(es)\n", len(syntheses))
	}
	return true
}

func main() {
	if handleHelp() {
		return
	}
	if handleVersion() {
		return
	}
	if handleCheck() {
		return
	}
	if handleAudit() {
		return
	}

	fmt.Fprintf(os.Stderr, "Usage: %s <check|audit|version|help>\n", os.Args[0])
	os.Exit(1)
}
