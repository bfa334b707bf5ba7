// Command bridge-demo loads a native library into a wazero runtime and
// drives it from many goroutines at once. Every call either returns
// normally or comes back as a managed exception; nothing escapes the
// bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/reglet-dev/nativebridge/bridge"
	"github.com/reglet-dev/nativebridge/config"
	"github.com/reglet-dev/nativebridge/internal/guestwasm"
	"github.com/reglet-dev/nativebridge/natives"
	"github.com/reglet-dev/nativebridge/trace"
	"github.com/reglet-dev/nativebridge/wazerovm"
)

type options struct {
	workers   int
	calls     int
	failEvery int
	debug     bool
	backend   string
	schema    bool
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("bridge-demo", pflag.ExitOnError)
	flags.IntVarP(&opts.workers, "workers", "w", 8, "Number of concurrent guest callers")
	flags.IntVarP(&opts.calls, "calls", "n", 10, "Calls per worker")
	flags.IntVar(&opts.failEvery, "fail-every", 3, "Make every Nth call hit the failing native (0 disables)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable bridge diagnostics (overrides "+config.EnvDebug+")")
	flags.StringVar(&opts.backend, "trace-backend", "", "Diagnostic backend: slog or zap (overrides "+config.EnvTraceBackend+")")
	flags.BoolVar(&opts.schema, "schema", false, "Print the configuration JSON schema and exit")
	_ = flags.Parse(os.Args[1:])

	if opts.schema {
		data, err := config.Schema()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	var cfgOpts []config.Option
	if flags.Changed("debug") {
		cfgOpts = append(cfgOpts, config.WithDebug(opts.debug))
	}
	if flags.Changed("trace-backend") {
		cfgOpts = append(cfgOpts, config.WithTraceBackend(config.TraceBackend(opts.backend)))
	}
	cfg, err := config.FromEnv(cfgOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	if err := run(context.Background(), logger, cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config, opts options) error {
	if err := bridge.Configure(bridge.WithLogger(logger), bridge.WithConfig(cfg)); err != nil {
		return fmt.Errorf("configure bridge: %w", err)
	}

	rtOpts := []wazerovm.Option{wazerovm.WithLogger(logger)}
	if cfg.Debug {
		rtOpts = append(rtOpts, wazerovm.WithTracer(trace.NewSlog(logger)))
	}
	rt, err := wazerovm.New(ctx, rtOpts...)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer func() {
		if cerr := rt.Close(ctx); cerr != nil {
			logger.ErrorContext(ctx, "close runtime", "error", cerr)
		}
	}()

	var served atomic.Int64
	table, err := natives.NewTable(
		natives.WithNative("ok", func(context.Context, []byte) ([]byte, error) {
			served.Add(1)
			return nil, nil
		}),
		natives.WithNative("fail", func(context.Context, []byte) ([]byte, error) {
			served.Add(1)
			return nil, errors.New("demo native refused the call")
		}),
	)
	if err != nil {
		return fmt.Errorf("build natives: %w", err)
	}

	err = rt.LoadLibrary(ctx, wazerovm.Library{
		Name: "demo",
		OnLoad: func(vm bridge.VM) bridge.Status {
			return bridge.Initialize(vm, func() error {
				return rt.RegisterNatives(guestwasm.ImportModule, table)
			})
		},
	})
	if err != nil {
		return err
	}

	mod, err := rt.Instantiate(ctx, guestwasm.Module)
	if err != nil {
		return err
	}

	var succeeded, thrown atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.workers; w++ {
		g.Go(func() error {
			okFn := mod.ExportedFunction("run_ok")
			failFn := mod.ExportedFunction("run_fail")
			for i := 1; i <= opts.calls; i++ {
				fn := okFn
				if opts.failEvery > 0 && i%opts.failEvery == 0 {
					fn = failFn
				}
				_, err := fn.Call(gctx, 0)
				var exc *bridge.Exception
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.As(err, &exc):
					thrown.Add(1)
					logger.DebugContext(gctx, "managed exception", "worker", w, "call", i, "kind", exc.Kind, "message", exc.Message)
				default:
					return fmt.Errorf("worker %d call %d: %w", w, i, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.InfoContext(ctx, "demo finished",
		"workers", opts.workers,
		"natives_served", served.Load(),
		"succeeded", succeeded.Load(),
		"exceptions", thrown.Load(),
		"attached", rt.Attached(),
	)
	fmt.Printf("succeeded=%d exceptions=%d\n", succeeded.Load(), thrown.Load())
	return nil
}
