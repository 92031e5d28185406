package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// options holds flags that are not configuration keys.
type options struct {
	cfgFile string
	verbose bool
}

// newRootCmd creates the root command and binds its persistent flags into v.
func newRootCmd(v *viper.Viper) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "sekolah",
		Short: "Crawl the Indonesian school reference site into RDF.",
		Long: `sekolah walks the school reference site province by province, extracts
every school's attribute table and writes the normalized records as Turtle,
CSV and JSON.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (YAML, TOML or JSON)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")
	flags.IntP("threshold", "t", 1, "maximum number of pages processed at once")
	flags.Int("max-retries", 10, "number of times a failed page is requeued")
	flags.Int("timeout", 30, "per-request timeout in seconds")

	bind := map[string]string{
		"crawler.threshold":    "threshold",
		"crawler.max_retries":  "max-retries",
		"http.timeout_seconds": "timeout",
	}
	for key, flag := range bind {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	cmd.AddCommand(newCrawlCmd(v, opts))
	return cmd
}

// Execute is the main entry point. Cobra prints the error; the global logger
// records it once the crawl command has installed one.
func Execute() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		zap.L().Fatal("command execution failed", zap.Error(err))
	}
}
