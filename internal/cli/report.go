// Package cli provides command-line interface utilities.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ZacharyZcR/readpe/internal/field"
	"github.com/ZacharyZcR/readpe/internal/pe"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const (
	DefaultLabelWidth = 34
	DefaultFlagIndent = 42

	indent = "    "
)

// Document is the structured form of one decoded file.
type Document struct {
	File    string   `json:"file" yaml:"file"`
	Kind    string   `json:"kind" yaml:"kind"`
	Size    int64    `json:"size" yaml:"size"`
	Headers []Header `json:"headers" yaml:"headers"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Header is one decoded header table.
type Header struct {
	Kind   string       `json:"kind" yaml:"kind"`
	Title  string       `json:"title" yaml:"title"`
	Offset uint64       `json:"offset" yaml:"offset"`
	Fields []field.Line `json:"fields" yaml:"fields"`
}

// Reporter prints decoded headers as they are validated.
type Reporter struct {
	w          io.Writer
	flags      field.Lookup
	format     string
	labelWidth int
	flagIndent int
	title      *color.Color
	file       *color.Color

	doc        *Document
	sawSection bool
	err        error

	jsonEnc *json.Encoder
	yamlEnc *yaml.Encoder
}

// NewReporter creates a text reporter writing to w.
func NewReporter(w io.Writer, flags field.Lookup) *Reporter {
	return &Reporter{
		w:          w,
		flags:      flags,
		format:     FormatText,
		labelWidth: DefaultLabelWidth,
		flagIndent: DefaultFlagIndent,
		title:      color.New(color.FgYellow, color.Bold),
		file:       color.New(color.FgCyan, color.Bold),
	}
}

// SetFormat selects text, json or yaml output.
func (r *Reporter) SetFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		r.format = format
		return nil
	}
	return errors.Errorf("unknown output format %q", format)
}

// SetLabelWidth sets the column the values start at, after the indent.
func (r *Reporter) SetLabelWidth(width int) {
	r.labelWidth = width
}

// SetFlagIndent sets the indent of flag-name lines.
func (r *Reporter) SetFlagIndent(width int) {
	r.flagIndent = width
}

// SetColor forces colored titles on or off.
func (r *Reporter) SetColor(enabled bool) {
	for _, c := range []*color.Color{r.title, r.file} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// Report decodes img and prints each header. Text output is streamed, so
// a failure leaves the headers before it printed. Structured output is
// written once, with the error recorded in the document.
func (r *Reporter) Report(img *pe.Image, opts pe.Options) (*pe.Headers, error) {
	r.doc = &Document{File: img.Path(), Kind: img.Kind(), Size: img.Size()}
	r.sawSection = false
	r.err = nil

	headers, err := pe.Walk(img.Data(), opts, r.visit)
	if r.format == FormatText {
		return headers, err
	}

	if err != nil {
		r.doc.Error = err.Error()
	}
	if encErr := r.encode(); encErr != nil && err == nil {
		err = encErr
	}
	return headers, err
}

// PrintFile prints a banner naming img. It is used to separate files in
// text output.
func (r *Reporter) PrintFile(img *pe.Image) error {
	if r.format != FormatText {
		return nil
	}
	_, err := r.file.Fprintf(r.w, "==> %s (%s, %s) <==\n", img.Path(), img.Kind(), formatSize(img.Size()))
	return err
}

// Close flushes structured output.
func (r *Reporter) Close() error {
	if r.yamlEnc != nil {
		return r.yamlEnc.Close()
	}
	return nil
}

func (r *Reporter) visit(kind pe.Kind, t *field.Table) error {
	lines := t.Render(r.flags)
	if r.format != FormatText {
		r.doc.Headers = append(r.doc.Headers, Header{
			Kind:   kind.String(),
			Title:  t.Title(),
			Offset: t.Base(),
			Fields: lines,
		})
		return nil
	}

	labelIndent := ""
	if kind == pe.KindSection {
		if !r.sawSection {
			r.sawSection = true
			r.titleln("Sections")
		}
		r.titleln(indent + t.Title())
		labelIndent = indent
	} else {
		r.titleln(t.Title())
	}

	pad := strings.Repeat(" ", r.flagIndent)
	for _, line := range lines {
		r.printf("%s%-*s%s\n", indent, r.labelWidth, labelIndent+line.Label+":", line.Value)
		for _, name := range line.Flags {
			r.printf("%s%s\n", pad, name)
		}
	}
	if kind == pe.KindSection {
		r.printf("\n")
	}
	return r.err
}

func (r *Reporter) encode() error {
	switch r.format {
	case FormatJSON:
		if r.jsonEnc == nil {
			r.jsonEnc = json.NewEncoder(r.w)
			r.jsonEnc.SetIndent("", "  ")
		}
		return r.jsonEnc.Encode(r.doc)
	case FormatYAML:
		if r.yamlEnc == nil {
			r.yamlEnc = yaml.NewEncoder(r.w)
			r.yamlEnc.SetIndent(2)
		}
		return r.yamlEnc.Encode(r.doc)
	}
	return nil
}

func (r *Reporter) titleln(s string) {
	if r.err != nil {
		return
	}
	_, r.err = r.title.Fprintln(r.w, s)
}

func (r *Reporter) printf(format string, args ...interface{}) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
