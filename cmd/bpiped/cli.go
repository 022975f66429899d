package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
)

// CLI is the command line interface of bpiped.
type CLI struct {
	Serve    Serve            `kong:"cmd,help='Start the web server.'"`
	Routes   Routes           `kong:"cmd,help='Print the routes the server would register.'"`
	CheckEnv CheckEnv         `kong:"cmd,name='check-env',help='Validate the environment configuration and exit.'"`
	Version  kong.VersionFlag `kong:"help='Output version and exit.'"`
}

// runContext is passed to the Run method of every command.
type runContext struct {
	ctx    context.Context
	stdout io.Writer
}

func newParser(c *CLI, stdout, stderr io.Writer, exit func(int)) (*kong.Kong, error) {
	parser, err := kong.New(c,
		kong.Name("bpiped"),
		kong.Description("Serve HTTP routes over the bpipe response pipeline."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{"version": version},
		kong.Writers(stdout, stderr),
		kong.Exit(exit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed creating the Kong parser")
	}

	return parser, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var c CLI
	parser, err := newParser(&c, stdout, stderr, os.Exit)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return errors.Wrap(err, "failed parsing CLI arguments")
	}

	//nolint:wrapcheck
	return kctx.Run(&runContext{ctx: ctx, stdout: parser.Stdout})
}

// Routes prints the demo route table.
type Routes struct{}

// Run implements the routes command.
func (Routes) Run(rctx *runContext) error {
	for _, r := range demoRoutes(os.Getenv("BP_OBJECT_BUCKET") != "", os.Getenv("BP_UPSTREAM_URL") != "") {
		fmt.Fprintf(rctx.stdout, "%-24s %-10s %s\n", r.pattern, r.name, r.methods)
	}

	return nil
}

// CheckEnv parses the environment the way serve does.
type CheckEnv struct{}

// Run implements the check-env command.
func (CheckEnv) Run(rctx *runContext) error {
	e, err := parseEnv()
	if err != nil {
		return err
	}

	fmt.Fprintf(rctx.stdout, "service %q on port %d, request timeout %s\n", e.ServiceName, e.Port, e.RequestTimeout)

	return nil
}
