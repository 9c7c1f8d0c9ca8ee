package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"cdpflow/internal/deps"
	"cdpflow/internal/preflight"
)

// checkState is the verdict shown in brackets on a doctor line.
type checkState string

const (
	stateOK   checkState = "OK"
	stateWarn checkState = "WARN"
	stateFail checkState = "ERROR"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBold   = "\x1b[1m"
)

const doctorLabelWidth = 20

// doctorPrinter writes the human-readable doctor report.
type doctorPrinter struct {
	out   io.Writer
	color bool
}

func newDoctorPrinter(out io.Writer) doctorPrinter {
	return doctorPrinter{out: out, color: isTerminal(out)}
}

func (p doctorPrinter) section(title string) {
	heading := "== " + title + " =="
	if p.color {
		heading = ansiBold + heading + ansiReset
	}
	fmt.Fprintln(p.out, heading)
}

func (p doctorPrinter) line(label string, state checkState, detail string) {
	text := fmt.Sprintf("  %-*s [%s]", doctorLabelWidth, label+":", state)
	if detail != "" {
		text += " " + detail
	}
	if p.color {
		text = stateColor(state) + text + ansiReset
	}
	fmt.Fprintln(p.out, text)
}

func (p doctorPrinter) check(result preflight.Result) {
	if result.Passed {
		p.line(result.Name, stateOK, result.Detail)
		return
	}
	p.line(result.Name, stateFail, result.Detail)
}

func (p doctorPrinter) tool(status deps.Status) {
	switch {
	case status.Available:
		p.line(status.Name, stateOK, status.Path)
	case status.Optional:
		p.line(status.Name, stateWarn, status.Detail)
	default:
		p.line(status.Name, stateFail, status.Detail)
	}
}

func (p doctorPrinter) report(report doctorReport) {
	fmt.Fprintf(p.out, "Config: %s\n\n", report.ConfigPath)
	p.section("Filesystem")
	for _, check := range report.Checks {
		p.check(check)
	}
	fmt.Fprintln(p.out)
	p.section("Programs")
	for _, tool := range report.Tools {
		p.tool(tool)
	}
	fmt.Fprintln(p.out)
	if report.Healthy {
		p.line("Overall", stateOK, "ready")
	} else {
		p.line("Overall", stateFail, "not ready")
	}
}

func stateColor(state checkState) string {
	switch state {
	case stateOK:
		return ansiGreen
	case stateWarn:
		return ansiYellow
	default:
		return ansiRed
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
