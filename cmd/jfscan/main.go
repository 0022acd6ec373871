package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jfscan/internal/adapter"
	"jfscan/internal/codec"
	"jfscan/internal/config"
	"jfscan/internal/logger"
	"jfscan/internal/metrics"
	"jfscan/internal/repository/sqlite"
	"jfscan/internal/service"
	"jfscan/internal/watcher"
)

type options struct {
	configPath  string
	targetsFile string
	nmapXML     []string
	output      string
	format      string
	ips         bool
	domains     bool
	metricsFile string
	workers     int
	logLevel    string
	watch       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "jfscan [targets...]",
		Short: "Collect and aggregate reconnaissance results",
		Long: `Collect scan targets and discovered open ports into one result store
and print aggregate views of it.

Targets may be IP addresses, CIDR ranges or domain names. Domains are
resolved and linked to every address they resolve to. Open ports are
imported from nmap XML output.

Examples:
  jfscan example.com 10.0.0.0/24
  jfscan --targets-file scope.txt --nmap-xml scan.xml --output endpoints
  jfscan --targets-file scope.txt --nmap-xml scan.xml --output endpoints --domains
  jfscan --targets-file scope.txt --output stats --metrics-file /var/lib/node_exporter/jfscan.prom
  jfscan --targets-file scope.txt --nmap-xml scan.xml --watch --metrics-file jfscan.prom`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default: $JFSCAN_CONFIG, ./jfscan.yaml)")
	flags.StringVarP(&opts.targetsFile, "targets-file", "f", "", "file with one target per line")
	flags.StringArrayVar(&opts.nmapXML, "nmap-xml", nil, "nmap XML output to import open ports from (repeatable)")
	flags.StringVarP(&opts.output, "output", "o", "report", "output: report, endpoints, addresses, ranges, domains, roots, stats")
	flags.StringVar(&opts.format, "format", "text", "report format: text, json, yaml")
	flags.BoolVar(&opts.ips, "ips", false, "include address endpoints in endpoints output")
	flags.BoolVar(&opts.domains, "domains", false, "include domain endpoints in endpoints output")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write store metrics to this file in Prometheus text format")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "concurrent target ingestion workers")
	flags.BoolVar(&opts.watch, "watch", false, "keep running and re-ingest input files when they change")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

func run(ctx context.Context, stdout io.Writer, opts *options, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	ctx = logger.WithLogger(ctx, log)

	repo, err := sqlite.New(cfg.Database.DSN, sqlite.WithLogger(log))
	if err != nil {
		log.Fatalw("Failed to initialize result store", "dsn", cfg.Database.DSN, "error", err)
	}

	eventBus := service.NewEventBus()
	events := make(chan service.Event, 256)
	eventBus.Subscribe(events)
	go func() {
		eventLog := log.WithComponent("events")
		for event := range events {
			eventLog.Debugw("Store event", "type", event.Type, "payload", event.Payload)
		}
	}()

	svc := service.NewReconService(repo, adapter.NewDNSResolver(cfg.Resolver, log),
		service.WithEventBus(eventBus),
		service.WithWorkers(cfg.Ingest.Workers),
		service.WithLogger(log),
	)
	defer svc.Close()

	start := time.Now()
	targets := append([]string{}, args...)
	if opts.targetsFile != "" {
		fileTargets, err := readTargetsFile(opts.targetsFile)
		if err != nil {
			return err
		}
		targets = append(targets, fileTargets...)
	}

	if err := svc.AddTargets(ctx, targets); err != nil {
		log.Warnw("Some targets could not be stored", "error", err)
	}

	importer := adapter.NewNmapImporter(svc, log)
	for _, path := range opts.nmapXML {
		importNmap(ctx, log, importer, path)
	}
	log.LogDuration(ctx, "ingest", start, "targets", len(targets), "nmap_files", len(opts.nmapXML))
	logProgress(ctx, log, svc, "ingested")

	if err := printOutput(ctx, stdout, svc, opts); err != nil {
		return err
	}
	if err := writeMetrics(log, svc, cfg.Metrics.TextfilePath); err != nil {
		return err
	}

	if !opts.watch {
		return nil
	}
	return watchInputs(ctx, log, svc, importer, opts, cfg.Metrics.TextfilePath)
}

// watchInputs re-ingests the targets file and nmap results whenever they change.
// Ingestion is idempotent, so whole files are replayed.
func watchInputs(ctx context.Context, log *logger.Logger, svc *service.ReconService, importer *adapter.NmapImporter, opts *options, metricsPath string) error {
	paths := append([]string{}, opts.nmapXML...)
	if opts.targetsFile != "" {
		paths = append(paths, opts.targetsFile)
	}
	if len(paths) == 0 {
		return fmt.Errorf("--watch needs --targets-file or --nmap-xml")
	}

	targetsPath := ""
	if opts.targetsFile != "" {
		abs, err := filepath.Abs(opts.targetsFile)
		if err != nil {
			return fmt.Errorf("resolve targets file: %w", err)
		}
		targetsPath = abs
	}

	var mu sync.Mutex
	w := watcher.New(paths, func(path string) {
		mu.Lock()
		defer mu.Unlock()

		if path == targetsPath {
			targets, err := readTargetsFile(path)
			if err != nil {
				log.LogError(ctx, err, "reload_targets", "file", path)
				return
			}
			if err := svc.AddTargets(ctx, targets); err != nil {
				log.Warnw("Some targets could not be stored", "error", err)
			}
		} else {
			importNmap(ctx, log, importer, path)
		}

		logProgress(ctx, log, svc, "updated")
		if err := writeMetrics(log, svc, metricsPath); err != nil {
			log.LogError(ctx, err, "write_metrics")
		}
	}, log)

	err := w.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func importNmap(ctx context.Context, log *logger.Logger, importer *adapter.NmapImporter, path string) {
	n, err := importer.ImportFile(ctx, path)
	if err != nil {
		log.LogError(ctx, err, "nmap_import", "file", path)
		return
	}
	log.Infow("Imported nmap results", "file", path, "open_ports", n)
}

func logProgress(ctx context.Context, log *logger.Logger, svc *service.ReconService, phase string) {
	stats, err := svc.Stats(ctx)
	if err != nil {
		log.LogError(ctx, err, "stats")
		return
	}
	log.LogScanProgress(ctx, phase, map[string]interface{}{
		"addresses":            stats.Addresses,
		"address_ranges":       stats.AddressRanges,
		"domains":              stats.Domains,
		"open_ports":           stats.OpenPorts,
		"responsive_addresses": stats.ResponsiveAddresses,
		"target_estimate":      stats.TargetEstimate,
	})
}

func writeMetrics(log *logger.Logger, svc *service.ReconService, path string) error {
	if path == "" {
		return nil
	}
	if err := metrics.WriteTextfile(path, svc); err != nil {
		return err
	}
	log.Debugw("Wrote metrics", "path", path)
	return nil
}

func loadConfig(opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, _, err = config.LoadFromPath(opts.configPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.workers > 0 {
		cfg.Ingest.Workers = opts.workers
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.metricsFile != "" {
		cfg.Metrics.TextfilePath = opts.metricsFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readTargetsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer f.Close()

	return service.LoadTargets(f)
}

func printOutput(ctx context.Context, w io.Writer, svc *service.ReconService, opts *options) error {
	var (
		lines []string
		err   error
	)

	switch opts.output {
	case "report":
		exporter, err := codec.ForFormat(opts.format)
		if err != nil {
			return err
		}
		report, err := svc.Report(ctx)
		if err != nil {
			return err
		}
		logger.FromContext(ctx).Debugw("Writing report", "format", exporter.Format(), "hosts", len(report.Hosts))
		return exporter.Export(report, w)
	case "endpoints":
		includeIPs, includeDomains := opts.ips, opts.domains
		if !includeIPs && !includeDomains {
			includeIPs = true
		}
		lines, err = svc.FormatEndpoints(ctx, includeIPs, includeDomains)
	case "addresses":
		lines, err = svc.ListAddresses(ctx)
	case "ranges":
		lines, err = svc.ListAddressRanges(ctx)
	case "domains":
		lines, err = svc.ListDomainNames(ctx)
	case "roots":
		lines, err = svc.ListRootDomains(ctx)
	case "stats":
		stats, err := svc.Stats(ctx)
		if err != nil {
			return err
		}
		lines = []string{
			fmt.Sprintf("addresses %d", stats.Addresses),
			fmt.Sprintf("address_ranges %d", stats.AddressRanges),
			fmt.Sprintf("domains %d", stats.Domains),
			fmt.Sprintf("open_ports %d", stats.OpenPorts),
			fmt.Sprintf("responsive_addresses %d", stats.ResponsiveAddresses),
			fmt.Sprintf("target_estimate %d", stats.TargetEstimate),
		}
	default:
		return fmt.Errorf("unknown output %q", opts.output)
	}
	if err != nil {
		return err
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
