package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reconciler/internal/reconcile"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(statusKindColor(kind), colorize).Sprint(base)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) color.Attribute {
	switch kind {
	case statusOK:
		return color.FgGreen
	case statusWarn:
		return color.FgYellow
	case statusError:
		return color.FgRed
	default:
		return color.FgBlue
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	c := paint(color.FgBlue, colorize)
	return []string{c.Sprint(line), c.Sprint(rule)}
}

// paint returns a color whose output is forced on or off, independent of the
// package-level terminal detection, so rendering to buffers stays plain.
func paint(attr color.Attribute, colorize bool) *color.Color {
	c := color.New(attr)
	if colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// stopReasonKind maps a stop reason onto a status colour.
func stopReasonKind(reason reconcile.StopReason) statusKind {
	switch reason {
	case reconcile.StopExhausted:
		return statusOK
	case reconcile.StopCanceled:
		return statusWarn
	case reconcile.StopFailureLimit:
		return statusError
	default:
		return statusInfo
	}
}

// humanize turns snake_case identifiers into title-cased words.
func humanize(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return "-"
	}
	return cases.Title(language.English).String(value)
}
