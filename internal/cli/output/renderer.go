// Package output renders check reports for terminals and pipelines.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"

	"github.com/vitruv-tools/oclsharp/pkg/checker"
)

// Mode selects the report output format.
type Mode string

// Output modes. Auto picks text with color on a terminal and plain
// text otherwise.
const (
	ModeAuto Mode = "auto"
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// Renderer writes reports in the selected mode.
type Renderer struct {
	out     io.Writer
	errOut  io.Writer
	mode    Mode
	profile termenv.Profile
}

// NewRenderer creates a renderer. In auto mode the color profile is
// detected from the output writer, so piped output stays plain.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	profile := termenv.NewOutput(out).Profile
	if mode == "" || mode == ModeAuto {
		mode = ModeText
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, profile: profile}
}

// Report renders a full check report.
func (r *Renderer) Report(rep *checker.Report) error {
	if r.mode == ModeJSON {
		return r.reportJSON(rep)
	}
	return r.reportText(rep)
}

// Error writes an error line to the error stream.
func (r *Renderer) Error(err error) {
	_, _ = fmt.Fprintf(r.errOut, "Error: %v\n", err)
}

func (r *Renderer) reportText(rep *checker.Report) error {
	for _, msg := range rep.ParseErrors {
		_, _ = fmt.Fprintf(r.errOut, "parse error: %s\n", msg)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"CONSTRAINT", "CONTEXT", "VERDICT", "INSTANCES", "VIOLATIONS"})
	for _, res := range rep.Results {
		t.AppendRow(table.Row{
			res.Name,
			res.Context,
			r.verdict(res.Verdict),
			res.Instances,
			len(res.Violations),
		})
	}
	t.Render()

	for _, res := range rep.Results {
		for _, d := range res.Errors {
			_, _ = fmt.Fprintf(r.out, "  %s: %s\n", res.Name, d)
		}
		for _, v := range res.Violations {
			_, _ = fmt.Fprintf(r.out, "  %s: %s (%s): %s\n", res.Name, v.Label, v.SourceFile, v.Message)
		}
		for _, msg := range res.Messages {
			_, _ = fmt.Fprintf(r.out, "  %s: %s\n", res.Name, msg)
		}
	}

	summary := "FAILED"
	if rep.Satisfied {
		summary = "OK"
	}
	_, _ = fmt.Fprintf(r.out, "run %s: %d constraints: %s\n", rep.RunID, len(rep.Results), r.status(summary))
	return nil
}

// verdict colors the verdict cell on capable terminals.
func (r *Renderer) verdict(v checker.Verdict) string {
	s := v.String()
	switch v {
	case checker.Satisfied:
		return termenv.String(s).Foreground(r.profile.Color("2")).String()
	case checker.Violated, checker.RuntimeError, checker.CompileError:
		return termenv.String(s).Foreground(r.profile.Color("1")).String()
	default:
		return s
	}
}

func (r *Renderer) status(s string) string {
	if s == "OK" {
		return termenv.String(s).Foreground(r.profile.Color("2")).Bold().String()
	}
	return termenv.String(s).Foreground(r.profile.Color("1")).Bold().String()
}

type jsonViolation struct {
	Label      string `json:"label"`
	SourceFile string `json:"source_file"`
	Message    string `json:"message"`
}

type jsonResult struct {
	Name       string          `json:"name"`
	Context    string          `json:"context"`
	Verdict    string          `json:"verdict"`
	Instances  int             `json:"instances"`
	Violations []jsonViolation `json:"violations,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
	Messages   []string        `json:"messages,omitempty"`
}

type jsonReport struct {
	RunID       string       `json:"run_id"`
	Satisfied   bool         `json:"satisfied"`
	ParseErrors []string     `json:"parse_errors,omitempty"`
	Results     []jsonResult `json:"results"`
}

func (r *Renderer) reportJSON(rep *checker.Report) error {
	out := jsonReport{
		RunID:       rep.RunID,
		Satisfied:   rep.Satisfied,
		ParseErrors: rep.ParseErrors,
		Results:     make([]jsonResult, 0, len(rep.Results)),
	}
	for _, res := range rep.Results {
		jr := jsonResult{
			Name:      res.Name,
			Context:   res.Context,
			Verdict:   res.Verdict.String(),
			Instances: res.Instances,
			Messages:  res.Messages,
		}
		for _, v := range res.Violations {
			jr.Violations = append(jr.Violations, jsonViolation{
				Label:      v.Label,
				SourceFile: v.SourceFile,
				Message:    v.Message,
			})
		}
		for _, d := range res.Errors {
			jr.Errors = append(jr.Errors, d.String())
		}
		out.Results = append(out.Results, jr)
	}

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
