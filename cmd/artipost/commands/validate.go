package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/artipost"
)

var ValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate upload configuration (URL and header text) in both tiers",
	Long: `Validate the configured upload URLs and raw header text without
sending anything. Both the job-level (upload:) and global-default (defaults:)
tiers are checked: URLs must be empty or well-formed http(s) URLs, and every
non-empty header line must be "Name: Value" with a transport-legal name and
value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		doc, err := loadDoc(v.GetString("config"), configExplicit(cmd))
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, v, doc)

		type check struct {
			tier, field, value string
			validate           func(string) error
		}
		checks := []check{
			{"upload", "url", doc.Upload.URL, artipost.ValidateURL},
			{"upload", "headers", doc.Upload.Headers, artipost.ValidateHeaders},
			{"defaults", "url", doc.Defaults.URL, artipost.ValidateURL},
			{"defaults", "headers", doc.Defaults.Headers, artipost.ValidateHeaders},
		}

		failed := 0
		for _, c := range checks {
			if err := c.validate(c.value); err != nil {
				failed++
				fmt.Printf("FAIL %s.%s: %v\n", c.tier, c.field, err)
			} else {
				fmt.Printf("ok   %s.%s\n", c.tier, c.field)
			}
		}
		if failed > 0 {
			return fmt.Errorf("validation failed with %d error(s)", failed)
		}
		return nil
	},
}
