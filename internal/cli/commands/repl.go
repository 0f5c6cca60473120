package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/vitruv-tools/oclsharp/internal/engine"
	"github.com/vitruv-tools/oclsharp/pkg/eval"
	"github.com/vitruv-tools/oclsharp/pkg/model"
	"github.com/vitruv-tools/oclsharp/pkg/parser"
	"github.com/vitruv-tools/oclsharp/pkg/sema"
)

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Evaluate OCL# expressions interactively",
		Long: `Start an interactive session against the loaded object model.

Expressions are evaluated with self bound to each instance of the current
context class in turn. Set the context with .context metamodel::Class.`,
		Example: `  oclsharp repl --metamodel fleet.yaml --instance ships.yaml`,
		Args:    cobra.NoArgs,
		RunE:    runRepl,
	}
	return cmd
}

// replSession holds the mutable state of one REPL run.
type replSession struct {
	engine  *engine.Engine
	context *model.ClassRef
	out     io.Writer
	errOut  io.Writer
}

func runRepl(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	historyFile := filepath.Join(os.TempDir(), "oclsharp_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ocl# ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	sess := &replSession{
		engine: cc.Engine,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	_, _ = fmt.Fprintf(sess.out, "oclsharp REPL (%d instances loaded)\n", cc.Engine.Registry().InstanceCount())
	_, _ = fmt.Fprintln(sess.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(sess.out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if quit := sess.handleDotCommand(line); quit {
				break
			}
			continue
		}

		sess.evalLine(line)
	}

	return nil
}

// handleDotCommand processes a REPL meta-command. Returns true to quit.
func (s *replSession) handleDotCommand(line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		s.printHelp()

	case ".context":
		if len(parts) < 2 {
			if s.context != nil {
				_, _ = fmt.Fprintf(s.out, "context: %s\n", s.context.QualifiedName())
			} else {
				_, _ = fmt.Fprintln(s.errOut, "Usage: .context <metamodel>::<Class>")
			}
			return false
		}
		s.setContext(parts[1])

	case ".metamodels":
		for _, name := range s.engine.Registry().Metamodels() {
			_, _ = fmt.Fprintln(s.out, name)
		}

	case ".instances":
		s.printInstances()

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (try .help)\n", parts[0])
	}
	return false
}

func (s *replSession) printHelp() {
	_, _ = fmt.Fprint(s.out, `Commands:
  .context <mm>::<Class>  Set the context class for self
  .metamodels             List loaded metamodels
  .instances              List instances of the current context class
  .help                   Show this help
  .quit                   Exit the REPL

Any other input is evaluated as an OCL# expression, once per instance
of the current context class.
`)
}

func (s *replSession) setContext(qualified string) {
	mm, class, ok := strings.Cut(qualified, "::")
	if !ok {
		_, _ = fmt.Fprintln(s.errOut, "Usage: .context <metamodel>::<Class>")
		return
	}
	ref, err := s.engine.Registry().ResolveClass(mm, class)
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return
	}
	s.context = ref
	_, _ = fmt.Fprintf(s.out, "context: %s (%d instances)\n",
		ref.QualifiedName(), len(s.engine.Registry().AllInstances(ref)))
}

func (s *replSession) printInstances() {
	if s.context == nil {
		_, _ = fmt.Fprintln(s.errOut, "No context class set. Use .context <mm>::<Class> first.")
		return
	}
	reg := s.engine.Registry()
	for _, obj := range reg.AllInstances(s.context) {
		_, _ = fmt.Fprintf(s.out, "%s (%s, %s)\n", obj.Label(), obj.Class.QualifiedName(), reg.SourceFile(obj))
	}
}

// evalLine compiles one expression against the current context and
// evaluates it per instance.
func (s *replSession) evalLine(line string) {
	if s.context == nil {
		_, _ = fmt.Fprintln(s.errOut, "No context class set. Use .context <mm>::<Class> first.")
		return
	}

	expr, errs := parser.ParseExpr(line)
	if len(errs) > 0 {
		for _, err := range errs {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		}
		return
	}

	// A REPL line is an anonymous constraint body over the chosen context.
	decl := &parser.ConstraintDecl{
		Metamodel: s.context.Metamodel,
		Class:     s.context.Name,
		Name:      "repl",
		Body:      expr,
	}

	reg := s.engine.Registry()
	checked, diags := sema.Analyze(decl, reg)
	for _, d := range diags {
		_, _ = fmt.Fprintf(s.errOut, "%s\n", d)
	}
	if sema.HasErrors(diags) {
		return
	}

	ev := eval.New(reg, checked)
	for _, obj := range reg.AllInstances(s.context) {
		v, err := ev.EvalObject(obj)
		if err != nil {
			_, _ = fmt.Fprintf(s.out, "%s: error: %v\n", obj.Label(), err)
			continue
		}
		_, _ = fmt.Fprintf(s.out, "%s: %s\n", obj.Label(), v)
	}
}
