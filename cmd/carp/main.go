// Command carp solves a CARP instance within a time limit and prints the
// best solution found on stdout.
//
//	carp <instance> [-t seconds] [-s seed] [--workers n] [--mode m] [--config file] [--log level]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"carpsolver/internal/buildinfo"
	"carpsolver/internal/config"
	"carpsolver/internal/format"
	"carpsolver/internal/instance"
	"carpsolver/internal/logging"
	"carpsolver/internal/opt"
	"carpsolver/internal/sysinfo"
)

func main() {
	if err := run(os.Args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "carp:", err)
		os.Exit(1)
	}
}

// valueFlags take a separate argument and must stay attached to it when
// the command line is reordered.
var valueFlags = map[string]bool{
	"t": true, "termination": true,
	"s": true, "seed": true,
	"w": true, "workers": true,
	"mode": true, "c": true, "config": true, "log": true,
}

// reorderArgs moves positional arguments after all flags so that
// "carp inst.dat -t 5" parses like "carp -t 5 inst.dat".
func reorderArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	flags := []string{args[0]}
	var pos []string
	for i := 1; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			pos = append(pos, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(a, "-") || a == "-" {
			pos = append(pos, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if !strings.Contains(name, "=") && valueFlags[name] && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, pos...)
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "carp"
	app.Usage = "anytime heuristic solver for the capacitated arc routing problem"
	app.ArgsUsage = "<instance>"
	app.Version = buildinfo.Version
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.Float64Flag{Name: "termination, t", Value: 30, Usage: "termination time in seconds"},
		cli.Int64Flag{Name: "seed, s", Value: 1, Usage: "base random seed"},
		cli.IntFlag{Name: "workers, w", Usage: "parallel workers (0 = min(max workers, GOMAXPROCS))"},
		cli.StringFlag{Name: "mode", Usage: "search mode: anneal+intensify, anneal, intensify"},
		cli.StringFlag{Name: "config, c", EnvVar: "CARP_CONFIG", Usage: "YAML config file"},
		cli.StringFlag{Name: "log", Value: "info", Usage: "log level: error, info, debug, spam (or 1-4)"},
	}
	app.Action = func(c *cli.Context) error { return solve(c, stdout, stderr) }
	return app
}

func run(args []string, stdout, stderr io.Writer) error {
	return newApp(stdout, stderr).Run(reorderArgs(args))
}

func solve(c *cli.Context, stdout, stderr io.Writer) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one instance path, got %d arguments", c.NArg())
	}
	start := time.Now()
	lvl, err := logging.ParseLevel(c.String("log"))
	if err != nil {
		return err
	}
	log := logging.New(stderr, lvl)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	termination := cfg.Solver.Termination
	if c.IsSet("termination") || c.String("config") == "" {
		termination = time.Duration(c.Float64("termination") * float64(time.Second))
	}
	if termination < 0 {
		return fmt.Errorf("termination must be >= 0")
	}
	seed := cfg.Solver.Seed
	if c.IsSet("seed") || c.String("config") == "" {
		seed = c.Int64("seed")
	}

	in, err := instance.Load(c.Args().First())
	if err != nil {
		return err
	}
	p, err := opt.NewProblem(in)
	if err != nil {
		return fmt.Errorf("instance %s: %w", in.Name, err)
	}

	opts := cfg.Solver.Options(termination, seed)
	if c.IsSet("workers") {
		opts.Workers = c.Int("workers")
	}
	if c.IsSet("mode") {
		m, err := opt.ParseMode(c.String("mode"))
		if err != nil {
			return err
		}
		opts.Mode = m
	}
	// the clock started before loading; workers get what is left
	opts.Termination -= time.Since(start)
	opts.OnReport = func(r opt.Report) {
		log.Debugf("[carp] worker=%d cost=%d elapsed=%v final=%t", r.Worker, r.Cost, r.Elapsed, r.Final)
	}

	sys := sysinfo.Get()
	n, budget := opt.Plan(opts)
	log.Infof("[carp] instance=%s vertices=%d tasks=%d capacity=%d vehicles=%d", in.Name, in.Vertices, len(p.Tasks), p.Capacity, p.Vehicles)
	log.Infof("[carp] workers=%d budget=%v seed=%d mode=%s host=%s cpu=%q cores=%d ram=%s",
		n, budget, seed, opts.Mode, sys.Platform, sys.CPU, sys.Cores, sys.RAM)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := opt.Solve(ctx, p, opts)
	if err != nil {
		return err
	}
	t := opt.Totals(res.Metrics)
	log.Infof("[carp] cost=%d routes=%d reports=%d fallback=%t attempts=%d rounds=%d elapsed=%v",
		res.Solution.Cost, len(res.Solution.Routes), res.Reports, res.Fallback, t.Attempts, t.Rounds, res.Elapsed)
	return format.Write(stdout, res.Solution.Pairs(p.Tasks), res.Solution.Cost)
}
