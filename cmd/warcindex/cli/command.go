// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command represents a CLI command or subcommand.
type Command struct {
	// Name is the command name as typed by the user (e.g., "index").
	Name string

	// Summary is a one-line description shown in the parent's help listing.
	Summary string

	// Description is a detailed multi-line description shown in the command's
	// own help output.
	Description string

	// Usage is the usage string (e.g., "warcindex index [flags] ARCHIVE...").
	// If empty, it is synthesized from the command path and subcommands.
	Usage string

	// Examples are shown in the help output after the description.
	Examples []Example

	// Flags returns a configured *pflag.FlagSet for this command. Called
	// lazily on first use. If nil, the command accepts no flags.
	Flags func() *pflag.FlagSet

	// Subcommands are nested commands dispatched by the first positional arg.
	Subcommands []*Command

	// Run executes the command with the remaining args (after flag parsing).
	Run func(ctx context.Context, args []string) error

	// Output receives help text. Only the root's value is used; nil
	// means os.Stderr.
	Output io.Writer

	// parent is set during dispatch to build the full command path for help.
	parent *Command
}

// Example is a usage example shown in help output.
type Example struct {
	// Description explains what the example does.
	Description string
	// Command is the literal command line.
	Command string
}

// Execute parses args and dispatches to the appropriate subcommand or Run
// function. This is the main entry point for the command tree.
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.output())
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name := args[0]
		for _, sub := range c.Subcommands {
			if sub.Name == name {
				sub.parent = c
				return sub.Execute(ctx, args[1:])
			}
		}

		if suggestion := suggestCommand(name, c.Subcommands); suggestion != "" {
			return Usagef("unknown command %q (did you mean %q?)\n\nRun '%s --help' for usage.",
				name, suggestion, c.fullName())
		}
		return Usagef("unknown command %q\n\nRun '%s --help' for usage.", name, c.fullName())
	}

	if len(c.Subcommands) > 0 && c.Run == nil {
		c.PrintHelp(c.output())
		if len(args) == 0 {
			return Usagef("subcommand required")
		}
		return Usagef("subcommand required (got flag %q)", args[0])
	}

	if c.Flags != nil {
		flagSet := c.Flags()

		// pflag's own error output and usage dump are replaced by the
		// messages below.
		flagSet.SetOutput(io.Discard)

		if err := flagSet.Parse(args); err != nil {
			if err == pflag.ErrHelp {
				c.PrintHelp(c.output())
				return nil
			}
			message := err.Error()
			if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand") {
				// A fresh FlagSet: the failed parse may have consumed state.
				if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
					return Usagef("%s (did you mean %s?)\n\nRun '%s --help' for usage.",
						message, suggestion, c.fullName())
				}
			}
			return Usagef("%s\n\nRun '%s --help' for usage.", message, c.fullName())
		}
		args = flagSet.Args()
	}

	if c.Run != nil {
		return c.Run(ctx, args)
	}

	c.PrintHelp(c.output())
	return Usagef("no action defined for %q", c.fullName())
}

// PrintHelp writes structured help output to w.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()

	if c.Description != "" {
		fmt.Fprintf(w, "%s\n\n", c.Description)
	} else if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	if c.Usage != "" {
		fmt.Fprintf(w, "Usage:\n  %s\n", c.Usage)
	} else if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", name)
	} else {
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", name)
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}

	if c.Flags != nil {
		if usage := c.Flags().FlagUsages(); usage != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", usage)
		}
	}

	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, example := range c.Examples {
			if example.Description != "" {
				fmt.Fprintf(w, "  # %s\n", example.Description)
			}
			fmt.Fprintf(w, "  %s\n", example.Command)
			if example.Description != "" {
				fmt.Fprintln(w)
			}
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

// fullName returns the complete command path (e.g., "warcindex index").
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func (c *Command) output() io.Writer {
	root := c
	for root.parent != nil {
		root = root.parent
	}
	if root.Output == nil {
		return os.Stderr
	}
	return root.Output
}

// isHelpFlag returns true for common help flag variants.
func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
