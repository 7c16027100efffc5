// Command omara runs the wardrobe backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/omara/internal/config"
)

var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
	backend    string
	storePath  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "omara",
		Short: "Wardrobe backend: photo ingestion, item store and suggestions",
		Long: `omara stores photographed clothing items, classifies them and suggests
what to do with them: donate, repair, sell, upcycle or wear.

Settings come from defaults, an optional YAML file, OMARA_* environment
variables and flags, later sources overriding earlier ones.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	pf.StringVar(&flags.backend, "store-backend", "", "item store backend (json or sqlite)")
	pf.StringVar(&flags.storePath, "store-path", "", "item store file")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newHashPasswordCmd())
	return root
}

// load reads the configuration with flag overrides applied.
func (f *globalFlags) load(extra map[string]any) (*config.Config, error) {
	overrides := map[string]any{}
	if f.backend != "" {
		overrides["store.backend"] = f.backend
	}
	if f.storePath != "" {
		overrides["store.path"] = f.storePath
	}
	for k, v := range extra {
		overrides[k] = v
	}
	return config.Load(config.LoadOptions{
		File:      f.configFile,
		DotEnv:    f.envFile,
		Overrides: overrides,
	})
}
