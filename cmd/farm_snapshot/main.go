package main

import (
	"context"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"

	"farm_poller/internal/app/poller"
	"farm_poller/internal/app/service"
	"farm_poller/internal/app/session"
	"farm_poller/internal/app/store"
	apiclient "farm_poller/internal/client"
	"farm_poller/internal/domain/entity"
	"farm_poller/internal/infrastructure/configloader"
	"farm_poller/internal/infrastructure/farmloader"
	clientprovider "farm_poller/internal/infrastructure/network/client"
	networkdefinition "farm_poller/internal/infrastructure/network/definition"
	"farm_poller/internal/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type options struct {
	configPath string
	chainID    uint64
	account    string
	flag       string
	timeout    time.Duration
	verbose    bool
}

func main() {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "farm_snapshot",
		Short: "Fetch every farm resource for a chain once and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "config/config.yml", "path to the YAML config")
	cmd.Flags().Uint64Var(&opts.chainID, "chain", 56, "chain id to fetch")
	cmd.Flags().StringVar(&opts.account, "account", "", "wallet address whose positions are included")
	cmd.Flags().StringVar(&opts.flag, "flag", string(entity.FlagDefault), "farm flag variant (default|api)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "overall deadline")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := configloader.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	zapCfg := zap.NewDevelopmentConfig()
	if !opts.verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	zapLogger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize zap logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	logger.SetHandler(zapslog.NewHandler(zapLogger.Core()))
	appLogger := logger.NewSlogAdapter()

	cc := entity.ChainContext{ChainID: opts.chainID, Account: opts.account}
	sess := session.NewState(entity.ChainContext{}, entity.FlagVariant(opts.flag))
	if err := sess.SetChainContext(cc); err != nil {
		return err
	}

	netDefProvider := networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.Networks)
	registry := farmloader.NewFarmLoader(cfg.Registry.Dir, time.Duration(cfg.Registry.CacheTTLMinutes)*time.Minute, appLogger)
	evmProvider := clientprovider.NewEVMClientProvider(netDefProvider, cfg.RpcClient, appLogger)
	defer evmProvider.Close()

	var farmsAPI clientprovider.PublicFarmAPI
	if cfg.FarmsAPI.BaseURL != "" {
		farmsAPI = apiclient.NewFarmsAPIClient(cfg.FarmsAPI.BaseURL, time.Duration(cfg.FarmsAPI.RequestTimeoutMillis)*time.Millisecond, zapLogger)
	}
	dataClient := clientprovider.NewFarmDataClient(evmProvider, netDefProvider, registry, farmsAPI, service.NewFarmPriceService(appLogger), appLogger)

	snapshots := store.NewSnapshotStore(0, appLogger)
	events, unsubscribe := snapshots.Subscribe()
	defer unsubscribe()

	p := poller.New(poller.Config{
		FastInterval: cfg.Poller.FastInterval(),
		APIInterval:  cfg.Poller.APIInterval(),
		SlowInterval: cfg.Poller.SlowInterval(),
		FetchTimeout: cfg.Poller.FetchTimeout(),
	}, sess, dataClient, registry, snapshots, appLogger)
	defer p.Stop()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	p.Reconcile(ctx)
	pending := make(map[string]struct{})
	for _, id := range p.Keys().IDs() {
		pending[id] = struct{}{}
	}

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %d resources: %w", len(pending), ctx.Err())
		case ev := <-events:
			delete(pending, ev.Key.ID())
		}
	}

	state := snapshots.Farms(cc.ChainID, cc.Account)
	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode farms: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
