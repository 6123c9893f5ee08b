package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/muurk/lightify/internal/store"
)

// Printer provides methods for printing UI components to a writer.
// When JSON is set, entity listings are written as indented JSON and
// decorative boxes are suppressed.
type Printer struct {
	out   io.Writer
	width int
	JSON  bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	if p.JSON {
		return
	}
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	if p.JSON {
		return
	}
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Param) {
	if p.JSON {
		return
	}
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips. Errors
// are boxed even in JSON mode; they go to the same writer as everything else.
func (p *Printer) PrintError(title string, err error, troubleshooting ...string) {
	p.Println(NewFailureResult(title, err, troubleshooting...).SetWidth(p.width).Render())
}

// PrintGroups prints cached groups as a table or JSON.
func (p *Printer) PrintGroups(groups []store.Group, lights []store.Light) error {
	if p.JSON {
		return p.PrintJSON(groups)
	}
	p.Println(RenderGroups(groups, lights, p.width))
	return nil
}

// PrintLights prints cached lights as a table or JSON.
func (p *Printer) PrintLights(lights []store.Light) error {
	if p.JSON {
		return p.PrintJSON(lights)
	}
	p.Println(RenderLights(lights, p.width))
	return nil
}

// PrintLight prints one light as a result box or JSON.
func (p *Printer) PrintLight(title string, l store.Light) error {
	if p.JSON {
		return p.PrintJSON(l)
	}
	p.PrintSuccess(title, LightDetails(l)...)
	return nil
}

// PrintJSON writes v as indented JSON.
func (p *Printer) PrintJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
