// Command carp-validate checks a solution file against a CARP instance:
// coverage, capacity, the vehicle bound, and the claimed cost.
//
//	carp-validate <instance> <solution|-> [--json]
//
// Exit status is 0 for a valid solution, 2 for an invalid one and 1 when
// the inputs cannot be read.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"carpsolver/internal/format"
	"carpsolver/internal/instance"
	"carpsolver/internal/validate"
)

func main() {
	err := run(os.Args, os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case isInvalid(err):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "carp-validate:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := cli.NewApp()
	app.Name = "carp-validate"
	app.Usage = "validate a CARP solution"
	app.ArgsUsage = "<instance> <solution|->"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "json", Usage: "print the full report as JSON"},
	}
	app.Action = func(c *cli.Context) error {
		if c.NArg() != 2 {
			return fmt.Errorf("expected <instance> <solution>, got %d arguments", c.NArg())
		}
		in, err := instance.Load(c.Args().Get(0))
		if err != nil {
			return err
		}
		var src io.Reader = stdin
		if name := c.Args().Get(1); name != "-" {
			f, err := os.Open(name)
			if err != nil {
				return err
			}
			defer f.Close()
			src = f
		}
		routes, claimed, err := format.Parse(src)
		if err != nil {
			return err
		}
		rep, err := validate.Check(in, routes, claimed)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
		} else if rep.Valid() {
			fmt.Fprintf(stdout, "valid: cost %d, %d routes\n", rep.Cost, rep.Routes)
		} else {
			fmt.Fprintln(stdout, "invalid:")
			for _, p := range rep.Problems() {
				fmt.Fprintln(stdout, "  -", p)
			}
		}
		return rep.Err()
	}
	// flags may follow the positionals
	if len(args) > 3 {
		var flags, pos []string
		for _, a := range args[1:] {
			if a == "--json" || a == "-json" {
				flags = append(flags, a)
			} else {
				pos = append(pos, a)
			}
		}
		args = append(append([]string{args[0]}, flags...), pos...)
	}
	return app.Run(args)
}

// isInvalid reports whether err is a validation finding rather than an
// input error.
func isInvalid(err error) bool {
	var ie *validate.InvalidError
	return errors.As(err, &ie)
}
