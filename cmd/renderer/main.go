package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/renderer"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "renderer:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		cc  renderer.ClientConfig
		pid uint64
		dev bool
	)
	flags := pflag.NewFlagSet("renderer", pflag.ContinueOnError)
	flags.StringVar(&cc.URL, "coordinator", "", "coordinator attach URL")
	flags.Uint64Var(&pid, "process-id", 0, "process id assigned by the coordinator")
	flags.StringVar(&cc.Token, "token", "", "launch token")
	flags.StringVar(&cc.Key, "site", "", "site key this process serves")
	flags.BoolVar(&dev, "dev", false, "development logging")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if cc.URL == "" || pid == 0 || cc.Token == "" {
		return errors.New("--coordinator, --process-id and --token are required")
	}
	cc.ProcessID = types.ProcessID(pid)

	logger := logging.NewDefault()
	if dev {
		logger = logging.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	cc.Logger = logger.Named("renderer").With(zap.Uint64("pid", pid), zap.String("site", cc.Key)).Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := renderer.Serve(ctx, cc)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
