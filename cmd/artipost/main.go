package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/artipost/cmd/artipost/commands"
)

var rootCmd = &cobra.Command{
	Use:   "artipost",
	Short: "POST build artifacts to an HTTP endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("config", "./artipost.yaml")
	v.SetDefault("limit", 20)

	// Environment variables support: ARTIPOST_URL, ARTIPOST_HEADERS, ...
	v.SetEnvPrefix("ARTIPOST")
	v.AutomaticEnv()

	// Bind flags via Cobra and then bind to Viper
	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to the artipost config yaml")
	commands.UploadCmd.Flags().String("url", "", "upload URL (overrides config)")
	commands.UploadCmd.Flags().String("headers", "", "raw header lines 'Name: Value' (overrides config)")
	commands.UploadCmd.Flags().String("job-name", "", "job name sent as the Job-Name header")
	commands.UploadCmd.Flags().Int("build-number", 0, "build number sent as the Build-Number header")
	commands.UploadCmd.Flags().String("result", "", "build result: success, unstable, failure, not_built, aborted")
	commands.ValidateCmd.Flags().String("url", "", "upload URL to validate (overrides config)")
	commands.ValidateCmd.Flags().String("headers", "", "raw header lines to validate (overrides config)")
	commands.HistoryCmd.Flags().Int("limit", v.GetInt("limit"), "number of history entries to show")

	// Only flags with a single owner are bound to viper keys. The upload and
	// validate flags share names (url, headers), so each RunE reads its own
	// command's flag set and falls back to the ARTIPOST_* env vars via viper.
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("limit", commands.HistoryCmd.Flags().Lookup("limit"))

	rootCmd.AddCommand(commands.UploadCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
