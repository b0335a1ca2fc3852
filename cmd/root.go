package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/splitdl/internal/scheduler"
	"github.com/tanq16/splitdl/internal/utils"
)

var (
	outputDir    string
	attempts     int
	retryDelay   time.Duration
	minSplit     int64
	queueSize    int
	hardLimit    bool
	timeout      time.Duration
	readTimeout  time.Duration
	kaTimeout    time.Duration
	userAgent    string
	proxyURL     string
	headers      []string
	debug        bool
	logFile      string
	logFileClose func() error
)

var SplitdlVersion = "dev"

var errUsage = errors.New("usage")

var rootCmd = &cobra.Command{
	Use:     "splitdl URL [MAX-CONCURRENT-CONNECTIONS] [MAX-DOWNLOAD-LIMIT-BYTES-PER-SECOND]",
	Short:   "splitdl is a resumable, multi-connection, rate-limited HTTP downloader",
	Version: SplitdlVersion,
	Args:    cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.InitLogger(debug)
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("error opening log file: %v", err)
			}
			utils.SetLogOutput(f)
			logFileClose = f.Close
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
	Run: func(cmd *cobra.Command, args []string) {
		if code := runRoot(cmd, args); code != 0 {
			// os.Exit skips PersistentPostRun
			closeLogFile()
			os.Exit(code)
		}
	},
}

func closeLogFile() {
	if logFileClose != nil {
		logFileClose()
		logFileClose = nil
	}
}

// runRoot returns the process exit code for one invocation.
func runRoot(cmd *cobra.Command, args []string) int {
	url, connections, rateLimit, err := parseArgs(args)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
		return 1
	}
	cfg := utils.DownloadConfig{
		URL:          url,
		OutputDir:    outputDir,
		Connections:  connections,
		RateLimit:    rateLimit,
		HardLimit:    hardLimit,
		MaxAttempts:  attempts,
		RetryDelay:   retryDelay,
		MinSplitSize: minSplit,
		QueueSize:    queueSize,
		HTTPClientConfig: utils.HTTPClientConfig{
			ConnectTimeout:  timeout,
			ReadIdleTimeout: readTimeout,
			KATimeout:       kaTimeout,
			ProxyURL:        proxyURL,
			UserAgent:       userAgent,
			Headers:         utils.ParseHeaderArgs(headers),
		},
	}
	if err := scheduler.Run(cfg); err != nil {
		return 1
	}
	return 0
}

// parseArgs validates the positional interface:
// URL [MAX-CONCURRENT-CONNECTIONS] [MAX-DOWNLOAD-LIMIT-BYTES-PER-SECOND].
func parseArgs(args []string) (string, int, int64, error) {
	if len(args) < 1 || len(args) > 3 {
		return "", 0, 0, errUsage
	}
	connections := utils.DefaultConnections
	var rateLimit int64
	if len(args) >= 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return "", 0, 0, fmt.Errorf("%w: invalid connection count %q", errUsage, args[1])
		}
		connections = n
	}
	if len(args) == 3 {
		n, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil || n < 1 {
			return "", 0, 0, fmt.Errorf("%w: invalid rate limit %q", errUsage, args[2])
		}
		rateLimit = n
	}
	return args[0], connections, rateLimit, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory for the downloaded file and its progress artifacts")
	rootCmd.Flags().IntVar(&attempts, "attempts", utils.DefaultMaxAttempts, "Maximum number of download attempts")
	rootCmd.Flags().DurationVar(&retryDelay, "retry-delay", utils.DefaultRetryDelay, "Delay between attempts (eg. 2s, 1m)")
	rootCmd.Flags().Int64Var(&minSplit, "min-split", utils.DefaultMinSplitSize, "Minimum bytes per worker when splitting a missing range")
	rootCmd.Flags().IntVar(&queueSize, "queue-size", utils.DefaultQueueSize, "Capacity of the chunk queue between fetchers and writer")
	rootCmd.Flags().BoolVar(&hardLimit, "hard-limit", false, "Reset the rate budget every second instead of accumulating unused tokens")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", utils.DefaultConnectTimeout, "Timeout for connecting and receiving response headers (eg. 5s, 1m)")
	rootCmd.Flags().DurationVar(&readTimeout, "read-timeout", utils.DefaultReadIdleTimeout, "Fail a range fetch when a single body read stalls this long")
	rootCmd.Flags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", utils.DefaultKATimeout, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.Flags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")

	rootCmd.AddCommand(newCleanCmd())
}
