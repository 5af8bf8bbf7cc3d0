package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/netbirdio/minion-installer/client/internal/catalog"
	"github.com/netbirdio/minion-installer/client/internal/configgen"
	"github.com/netbirdio/minion-installer/client/internal/downloader"
	"github.com/netbirdio/minion-installer/client/internal/installer"
	"github.com/netbirdio/minion-installer/client/internal/netprobe"
	"github.com/netbirdio/minion-installer/client/internal/orchestrator"
	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/client/system"
	"github.com/netbirdio/minion-installer/util"
)

const (
	silentFlag     = "silent"
	uninstallFlag  = "uninstall"
	checkFlag      = "check"
	versionFlag    = "version"
	masterFlag     = "master"
	portFlag       = "port"
	minionIDFlag   = "minion-id"
	serviceFlag    = "service"
	catalogURLFlag = "catalog-url"
	downloadFlag   = "download-dir"

	// showVersion is the value of a bare --version. Any other value is the version to install
	showVersion = "show"

	defaultLogFile       = "salt-installer.log"
	downloadRetryDelay   = 2 * time.Second
	progressReportFactor = 10

	failureMessage = "Installation failed. Check logs for details."
)

var (
	logLevel    string
	logFile     string
	serviceName string
	catalogURL  string
	downloadDir string

	silent         bool
	uninstall      bool
	check          bool
	versionRequest string
	masterAddress  string
	masterPort     int
	minionID       string

	rootCmd        = newRootCmd()
	buildWorkflows = newWorkflows
)

// Workflows are the installer modes selected by the flags
type Workflows interface {
	Interactive(ctx context.Context) error
	Silent(ctx context.Context, req installer.Request) error
	Uninstall(ctx context.Context) error
	Check(ctx context.Context) error
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minion-installer",
		Short: "Installs, checks and removes the Salt minion",
		Long: "Installs the Salt minion with the native package and service tools of the host.\n" +
			"Without flags the installer asks for the settings interactively.",
		Example: "  minion-installer --silent --master 192.168.1.100 --minion-id web-server-01\n" +
			"  minion-installer --check\n" +
			"  minion-installer --uninstall",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runInstaller,
	}

	defaultDownloadDir := orchestrator.DefaultConfig().DownloadDir

	cmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "sets the installer log level")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", defaultLogFile, "sets the installer log path. If console is specified the log will be output to stderr")
	cmd.PersistentFlags().StringVarP(&serviceName, serviceFlag, "s", installer.DefaultServiceName, "minion system service name")
	cmd.PersistentFlags().StringVar(&catalogURL, catalogURLFlag, catalog.DefaultManifestURL, "release manifest URL")
	cmd.PersistentFlags().StringVar(&downloadDir, downloadFlag, defaultDownloadDir, "directory receiving the downloaded packages")

	cmd.Flags().BoolVar(&silent, silentFlag, false, "run a silent installation with default or provided options")
	cmd.Flags().BoolVar(&uninstall, uninstallFlag, false, "uninstall the Salt minion")
	cmd.Flags().BoolVar(&check, checkFlag, false, "check the installation status")
	cmd.Flags().StringVar(&versionRequest, versionFlag, "", "show the installer version. With --silent: Salt `release` to install (default: latest)")
	cmd.Flags().Lookup(versionFlag).NoOptDefVal = showVersion
	cmd.Flags().StringVar(&masterAddress, masterFlag, "", fmt.Sprintf("Salt master IP address (default: %s)", orchestrator.DefaultMaster))
	cmd.Flags().IntVar(&masterPort, portFlag, orchestrator.DefaultMasterPort, "Salt master port")
	cmd.Flags().StringVar(&minionID, minionIDFlag, "", "minion ID (default: <hostname>-<unix time>)")

	return cmd
}

// runInstaller selects the mode. Precedence: silent, uninstall, version, check, interactive
func runInstaller(cmd *cobra.Command, args []string) error {
	util.SetFlagsFromEnvVars(cmd)

	if len(args) > 0 && !(silent && versionRequest == showVersion) {
		return fmt.Errorf("unexpected argument %q", args[0])
	}

	if !silent && !uninstall && versionRequest != "" {
		cmd.Println(versionString())
		return nil
	}

	logger, err := util.InitLog(logLevel, logFile)
	if err != nil {
		return fmt.Errorf("failed initializing log %v", err)
	}
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log: %v\n", err)
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	SetupCloseHandler(ctx, cancel, logger.Component("cli"))

	workflows := buildWorkflows(cmd, logger)

	switch {
	case silent:
		err = workflows.Silent(ctx, silentRequest(args))
	case uninstall:
		err = workflows.Uninstall(ctx)
	case check:
		err = workflows.Check(ctx)
	default:
		err = workflows.Interactive(ctx)
	}

	if err != nil {
		logger.Component("cli").Errorf("installation failed: %v", err)
		cmd.PrintErrln(failureMessage)
		return err
	}
	return nil
}

// silentRequest builds the request from the flags. A bare --version followed by an
// argument takes the argument as the version to install
func silentRequest(args []string) installer.Request {
	requested := versionRequest
	if requested == showVersion {
		requested = ""
		if len(args) == 1 {
			requested = args[0]
		}
	}
	return installer.Request{
		Version:    requested,
		Master:     masterAddress,
		MasterPort: masterPort,
		MinionID:   minionID,
	}
}

func newWorkflows(cmd *cobra.Command, logger *util.Logger) Workflows {
	runner := process.NewExecRunner(logger.Component("process"))
	fs := util.NewFileStore("")

	catalogCfg := catalog.DefaultConfig()
	catalogCfg.ManifestURL = catalogURL

	httpCfg := downloader.HTTPConfig{
		RetryDelay: downloadRetryDelay,
		Progress:   newProgressReporter(cmd.OutOrStdout()),
	}

	deps := orchestrator.Deps{
		Detector:  system.NewProbe(runner, fs, logger.Component("platform")),
		Installer: installer.New(runner, fs, serviceName, logger.Component("installer")),
		Catalog:   catalog.New(catalogCfg, logger.Component("catalog")),
		Config:    configgen.NewGenerator(runner, fs, logger.Component("config")),
		NewNetwork: func(family system.Family) orchestrator.NetworkProbe {
			return netprobe.New(runner, fs, family, logger.Component("network"))
		},
		NewDownloader: func(family system.Family) orchestrator.Downloader {
			return downloader.New(runner, family, httpCfg, logger.Component("download"))
		},
		Prompter: orchestrator.NewConsolePrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
		Out:      cmd.OutOrStdout(),
	}

	cfg := orchestrator.DefaultConfig()
	cfg.DownloadDir = filepath.Clean(downloadDir)
	return orchestrator.New(deps, cfg, logger.Component("orchestrator"))
}

// SetupCloseHandler cancels the workflow context on SIGINT or SIGTERM
func SetupCloseHandler(ctx context.Context, cancel context.CancelFunc, logger *log.Entry) {
	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(termCh)
		done := ctx.Done()
		select {
		case <-done:
		case <-termCh:
			logger.Info("shutdown signal received")
			cancel()
		}
	}()
}
