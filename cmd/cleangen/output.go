package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/yourorg/cleangen/internal/workspace"
	"github.com/yourorg/cleangen/pkg/types"
)

// printer writes command output, colored only when w is a terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w}
	if f, ok := w.(*os.File); ok && os.Getenv("NO_COLOR") == "" {
		p.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

func (p *printer) paint(attr color.Attribute, s string) string {
	if !p.color {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

func (p *printer) id(s string) string { return p.paint(color.FgCyan, s) }

func (p *printer) status(s string) string {
	switch s {
	case types.RunWritten:
		return p.paint(color.FgGreen, s)
	case types.RunFailed:
		return p.paint(color.FgRed, s)
	default:
		return p.paint(color.FgYellow, s)
	}
}

func (p *printer) header(path string) {
	fmt.Fprintln(p.w, p.paint(color.Bold, "// ==> "+path))
}

func (p *printer) added(path string) {
	fmt.Fprintln(p.w, p.paint(color.FgGreen, "  + "+path))
}

func (p *printer) fileDiff(d workspace.FileDiff) {
	ins, del := d.Changed()
	fmt.Fprintf(p.w, "%s %s (+%d -%d)\n", p.paint(color.Bold, string(d.Status)), d.Path, ins, del)
	for _, l := range d.Lines {
		line := string(rune(l.Op)) + " " + l.Text
		switch l.Op {
		case workspace.OpInsert:
			line = p.paint(color.FgGreen, line)
		case workspace.OpDelete:
			line = p.paint(color.FgRed, line)
		default:
			continue
		}
		fmt.Fprintln(p.w, line)
	}
}

func printSkipped(p *printer, skipped []types.Skipped) {
	for _, s := range skipped {
		fmt.Fprintf(p.w, "%s %s %s: %s\n", p.paint(color.FgYellow, "skipped"), s.Endpoint, s.Side, s.Reason)
	}
}
