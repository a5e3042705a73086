// Package cmd implements the CLI commands for simon.
package cmd

import (
	"errors"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/soapbox/simon/internal/term"
	"github.com/soapbox/simon/internal/version"
)

// flags holds the persistent command-line options.
type flags struct {
	super       bool
	local       bool
	interactive bool
	subdomain   string
	debug       bool
	silent      bool
	dryRun      bool
}

var opts flags

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "simon [command] [args...]",
	Short: "Development environment task runner",
	Long: `Simon runs the build and deploy tools of a PHP and Node project (npm,
composer, bower, vagrant, php, grunt) as ordered task lists, locally or on
the project's Vagrant machine, and keeps the project domain in the hosts file.

Run simon without arguments to enter interactive mode.

Options for simon must come before the command. Everything after the command
name is passed to the tool unchanged, so in

    simon -s phpunit --debug

-s applies to simon and --debug to phpunit. Any command simon does not know
runs the grunt task of that name.`,
	Version:       version.Version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&opts.super, "super", "s", false, "run PHP commands such as phpunit and artisan with HHVM")
	pf.BoolVarP(&opts.local, "local", "l", false, "run all commands locally instead of on the Vagrant machine")
	pf.StringVar(&opts.subdomain, "subdomain", "", "subdomain for the add and remove commands")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.BoolVar(&opts.silent, "silent", false, "suppress informational output")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "print commands instead of running them")

	rootCmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "jump right into interactive mode")
}

// Execute runs the root command and returns any error.
func Execute() error {
	rootCmd.SetArgs(normalizeArgs(rootCmd, os.Args[1:]))
	err := rootCmd.Execute()
	var exitErr *ExitCodeError
	if err != nil && !errors.As(err, &exitErr) {
		term.Error("%v", err)
	}
	return err
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || opts.interactive {
		return runInteractive(cmd)
	}
	// Not a known command: run it as a grunt task.
	return runOperation(cmd, "grunt", args)
}

// normalizeArgs inserts "--" after the command name so that the tool's own
// flags are passed through instead of being parsed by simon. Commands with
// subcommands and cobra's internal commands are left alone.
func normalizeArgs(root *cobra.Command, args []string) []string {
	i := commandIndex(args, root.PersistentFlags(), root.Flags())
	if i < 0 || i == len(args)-1 {
		return args
	}
	name := args[i]
	if strings.HasPrefix(name, "__") {
		return args
	}
	for _, c := range root.Commands() {
		if (c.Name() == name || c.HasAlias(name)) && c.HasSubCommands() {
			return args
		}
	}

	out := make([]string, 0, len(args)+1)
	out = append(out, args[:i+1]...)
	out = append(out, "--")
	return append(out, args[i+1:]...)
}

// commandIndex returns the index of the first argument that is not a flag
// or a flag value, or -1 when there is none or "--" comes first.
func commandIndex(args []string, sets ...*pflag.FlagSet) int {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			return -1
		case strings.HasPrefix(a, "--"):
			if !strings.Contains(a, "=") && takesValue(lookupLong(a[2:], sets)) {
				i++
			}
		case strings.HasPrefix(a, "-") && len(a) > 1:
			// Only the last flag of a -xyz group can consume the next argument.
			if len(a) == 2 && takesValue(lookupShort(a[1:], sets)) {
				i++
			}
		default:
			return i
		}
	}
	return -1
}

func lookupLong(name string, sets []*pflag.FlagSet) *pflag.Flag {
	for _, fs := range sets {
		if f := fs.Lookup(name); f != nil {
			return f
		}
	}
	return nil
}

func lookupShort(name string, sets []*pflag.FlagSet) *pflag.Flag {
	for _, fs := range sets {
		if f := fs.ShorthandLookup(name); f != nil {
			return f
		}
	}
	return nil
}

func takesValue(f *pflag.Flag) bool {
	return f != nil && f.NoOptDefVal == "" && !slices.Contains([]string{"bool", "count"}, f.Value.Type())
}
