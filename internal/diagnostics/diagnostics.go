// Package diagnostics renders CLI output: leveled messages, route tables and
// annotation errors, colored when the terminal supports it.
package diagnostics

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/toyz/synapse/internal/annotations"
	"github.com/toyz/synapse/pkg/synapse"
)

// Level represents the level of diagnostic output
type Level int

const (
	Silent Level = iota
	ErrorLevel
	WarnLevel
	InfoLevel
	VerboseLevel
	DebugLevel
)

// ParseLevel maps a config string to a Level; unknown strings give InfoLevel
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent", "quiet":
		return Silent
	case "error":
		return ErrorLevel
	case "warn", "warning":
		return WarnLevel
	case "verbose":
		return VerboseLevel
	case "debug":
		return DebugLevel
	default:
		return InfoLevel
	}
}

// Reporter provides structured, user-friendly output
type Reporter struct {
	level    Level
	showTime bool
	output   io.Writer
	errorOut io.Writer
}

// New creates a reporter writing to stdout and stderr
func New(level Level) *Reporter {
	if !shouldUseColors() {
		color.NoColor = true
	}
	return &Reporter{
		level:    level,
		showTime: level >= VerboseLevel,
		output:   os.Stdout,
		errorOut: os.Stderr,
	}
}

// NewWithWriters creates a reporter writing to the given writers, without colors
func NewWithWriters(level Level, out, errOut io.Writer) *Reporter {
	color.NoColor = true
	return &Reporter{level: level, output: out, errorOut: errOut}
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgBlue)
	successColor = color.New(color.FgGreen)
	debugColor   = color.New(color.FgMagenta)
	dimColor     = color.New(color.FgHiBlack)
	headerColor  = color.New(color.FgCyan, color.Bold)
)

// Error outputs error messages (always shown unless silent)
func (r *Reporter) Error(format string, args ...any) {
	if r.level >= ErrorLevel {
		r.write(r.errorOut, "ERROR", errorColor, format, args...)
	}
}

// Warn outputs warning messages
func (r *Reporter) Warn(format string, args ...any) {
	if r.level >= WarnLevel {
		r.write(r.output, "WARN", warnColor, format, args...)
	}
}

// Info outputs informational messages
func (r *Reporter) Info(format string, args ...any) {
	if r.level >= InfoLevel {
		r.write(r.output, "INFO", infoColor, format, args...)
	}
}

// Success outputs success messages with emphasis
func (r *Reporter) Success(format string, args ...any) {
	if r.level >= InfoLevel {
		r.write(r.output, "OK", successColor, format, args...)
	}
}

// Debug outputs debug messages
func (r *Reporter) Debug(format string, args ...any) {
	if r.level >= DebugLevel {
		r.write(r.output, "DEBUG", debugColor, format, args...)
	}
}

// Section creates a prominent section header
func (r *Reporter) Section(title string) {
	if r.level >= InfoLevel {
		headerColor.Fprintf(r.output, "%s\n", title)
	}
}

// List outputs a bulleted list item
func (r *Reporter) List(format string, args ...any) {
	if r.level >= InfoLevel {
		fmt.Fprintf(r.output, "- %s\n", fmt.Sprintf(format, args...))
	}
}

var methodColors = map[string]*color.Color{
	"GET":    color.New(color.FgGreen),
	"POST":   color.New(color.FgYellow),
	"PUT":    color.New(color.FgBlue),
	"PATCH":  color.New(color.FgCyan),
	"DELETE": color.New(color.FgRed),
}

// Routes prints the route table, one route per line in match order
func (r *Reporter) Routes(prefix string, routes []synapse.RouteDescriptor) {
	if r.level < InfoLevel {
		return
	}
	if len(routes) == 0 {
		r.Warn("no routes registered")
		return
	}

	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	for _, route := range routes {
		c, ok := methodColors[route.Method]
		if !ok {
			c = dimColor
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			c.Sprint(route.Method),
			synapse.JoinPaths(prefix, route.Path),
			dimColor.Sprintf("%s.%s", route.Controller.Name(), route.MethodName))
	}
	tw.Flush()
}

// Report prints err, expanding annotation errors with their location and hint
func (r *Reporter) Report(err error) {
	if r.level < ErrorLevel || err == nil {
		return
	}

	var list annotations.ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			r.annotationError(e)
		}
		return
	}
	var single annotations.AnnotationError
	if errors.As(err, &single) {
		r.annotationError(single)
		return
	}
	r.Error("%v", err)
}

func (r *Reporter) annotationError(e annotations.AnnotationError) {
	r.Error("%s %s", dimColor.Sprintf("%s:", e.Code()), e.Error())
}

func (r *Reporter) write(w io.Writer, level string, c *color.Color, format string, args ...any) {
	var b strings.Builder
	if r.showTime {
		b.WriteString(dimColor.Sprint(time.Now().Format("15:04:05 ")))
	}
	b.WriteString(c.Sprintf("[%s]", level))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf(format, args...))
	b.WriteString("\n")
	fmt.Fprint(w, b.String())
}

// shouldUseColors determines if colors should be used
func shouldUseColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}
