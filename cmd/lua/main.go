// Command lua is the minimal host driver for the embeddable
// interpreter: a file/stdin runner, a source validator, and a REPL.
// It is intentionally thin — the engine lives in the root lua package
// and internal/*; this is just a CLI skin over Host, styled after the
// cobra-based command trees in the retrieved example repos.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	lua "github.com/embeddedlua/luacore"
)

var (
	trustName string
	moduleDir string
)

func main() {
	root := &cobra.Command{
		Use:   "lua",
		Short: "Run, validate, or interactively evaluate Lua 5.4 scripts",
	}
	root.PersistentFlags().StringVar(&trustName, "trust", "trusted", "trust level: untrusted|sandbox|restricted|trusted|full-trust")
	root.PersistentFlags().StringVar(&moduleDir, "module-root", ".", "directory searched by require()")

	root.AddCommand(runCmd(), validateCmd(), replCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func trustLevel() (lua.TrustLevel, error) {
	switch strings.ToLower(trustName) {
	case "untrusted":
		return lua.Untrusted, nil
	case "sandbox":
		return lua.Sandbox, nil
	case "restricted":
		return lua.Restricted, nil
	case "trusted":
		return lua.Trusted, nil
	case "full-trust", "fulltrust":
		return lua.FullTrust, nil
	default:
		return lua.Sandbox, fmt.Errorf("unknown --trust value %q", trustName)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file|->",
		Short: "Execute a script file (or stdin, given -)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, chunkName, err := readSource(args[0])
			if err != nil {
				return err
			}
			level, err := trustLevel()
			if err != nil {
				return err
			}
			h := lua.NewHost(lua.Options{Trust: level, ModuleRoots: []string{moduleDir}})
			results, err := h.Execute(context.Background(), src, chunkName)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				os.Exit(1)
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|->",
		Short: "Parse a script without executing it, reporting diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, chunkName, err := readSource(args[0])
			if err != nil {
				return err
			}
			diags := lua.Validate(src, chunkName)
			items := diags.Items()
			for _, d := range items {
				fmt.Fprintln(cmd.OutOrStdout(), d.String())
			}
			if len(items) > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive read-eval-print loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := trustLevel()
			if err != nil {
				return err
			}
			h := lua.NewHost(lua.Options{Trust: level, ModuleRoots: []string{moduleDir}})
			return runRepl(h, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runRepl reads one line at a time, evaluating each as a standalone
// chunk (prefixing "return " so bare expressions print their value,
// the same convenience the reference Lua REPL offers). Raw-mode
// editing is left to the user's shell; term is used here only to
// decide whether to print the "> " prompt at all, so piping a script
// through `lua repl < file.lua` stays quiet and scriptable.
func runRepl(h *lua.Host, in io.Reader, out io.Writer) error {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		src := line
		if trial := lua.Validate("return "+line, "=stdin"); len(trial.Items()) == 0 {
			src = "return " + line
		}
		results, err := h.Execute(context.Background(), src, "=stdin")
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		for _, r := range results {
			fmt.Fprintln(out, r)
		}
	}
}

func readSource(path string) (source, chunkName string, err error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", err
		}
		return string(data), "=stdin", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(data), "@" + path, nil
}
