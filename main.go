package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/carson-networks/txfeed/api"
	"github.com/carson-networks/txfeed/internal/client"
	"github.com/carson-networks/txfeed/internal/config"
	"github.com/carson-networks/txfeed/internal/creation"
	"github.com/carson-networks/txfeed/internal/feed"
	"github.com/carson-networks/txfeed/internal/logging"
	"github.com/carson-networks/txfeed/internal/operator"
	"github.com/carson-networks/txfeed/internal/service"
)

// app holds the wired components shared by every command.
type app struct {
	logger    *logrus.Logger
	config    *config.Config
	trigger   *feed.RefreshTrigger
	cache     *feed.SharedFeedCache
	delegator *operator.OperatorDelegator
	submitter *creation.Submitter
}

func newApp(c *cli.Context) (*app, error) {
	logger := logging.SetupLogging()

	envConfig, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := logging.SetLevel(logger, envConfig.Log.Level); err != nil {
		return nil, err
	}

	svc := service.NewTransactionService(client.NewClient(envConfig.API.BaseURL, envConfig.API.Timeout))
	trigger := feed.NewRefreshTrigger(envConfig.Feed.Interval)
	cache := feed.NewSharedFeedCache(feed.NewFeedLoader(svc, trigger, logger), logger)

	delegator := operator.NewOperatorDelegator(svc, envConfig.Operator.Workers, logger)
	delegator.Start()

	return &app{
		logger:    logger,
		config:    envConfig,
		trigger:   trigger,
		cache:     cache,
		delegator: delegator,
		submitter: creation.NewSubmitter(delegator, trigger, logger),
	}, nil
}

func (a *app) close() {
	a.delegator.Stop()
}

func serve(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpRest := api.Rest{
		Logger:    a.logger,
		Port:      a.config.HTTP.Port,
		Feed:      a.cache,
		Refresher: a.trigger,
		Submitter: a.submitter,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpRest.Serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("txfeed stopping")
		return nil
	})
	return g.Wait()
}

func watch(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub := a.cache.Subscribe()
	defer sub.Close()

	dump := c.Bool("dump")
	for {
		select {
		case state, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			entry := a.logger.WithFields(logrus.Fields{
				"loading":          state.Loading,
				"transactionCount": state.Snapshot.Len(),
			})
			if state.HasError() {
				entry = entry.WithField("feedError", state.Error)
			}
			if state.LastUpdated != nil {
				entry = entry.WithField("lastUpdated", state.LastUpdated)
			}
			entry.Info("Watch.State")
			if dump && !state.Loading {
				fmt.Fprint(c.App.Writer, spew.Sdump(state.Snapshot.Transactions()))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func submit(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	state, err := a.submitter.SubmitAmount(c.Context, c.String("amount"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if state.Error != "" {
		return cli.Exit(state.Error, 1)
	}
	fmt.Fprintln(c.App.Writer, state.Message)
	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Usage:   "optional YAML configuration file",
		EnvVars: []string{config.EnvPrefix + "CONFIG"},
	}

	cliApp := &cli.App{
		Name:  "txfeed",
		Usage: "live view of the commission service transactions",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the view API over the shared feed",
				Action: serve,
			},
			{
				Name:  "watch",
				Usage: "log every feed state until interrupted",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dump", Usage: "print each settled snapshot"},
				},
				Action: watch,
			},
			{
				Name:  "submit",
				Usage: "register one transaction",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "amount", Usage: "decimal amount, at least 1", Required: true},
				},
				Action: submit,
			},
		},
		DefaultCommand: "serve",
	}

	if err := cliApp.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("txfeed")
	}
}
