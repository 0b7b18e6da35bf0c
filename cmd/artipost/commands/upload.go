package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/artipost"
	"github.com/loykin/artipost/cmd/artipost/config"
	"github.com/loykin/artipost/internal/common"
	"github.com/loykin/artipost/internal/uploader"
	"github.com/loykin/artipost/internal/util"
)

var UploadCmd = &cobra.Command{
	Use:   "upload [artifact files...]",
	Short: "POST build artifacts to the configured URL as one multipart request",
	Long: `Upload the build's artifacts in a single multipart/form-data POST.
Artifacts come from the config file (build.artifacts, build.artifact_dir)
plus any file paths given as arguments. The upload is best effort: a failed
or unreachable endpoint is logged but never makes the command fail, so a
surrounding build is never broken by its artifact upload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()

		doc, err := loadDoc(v.GetString("config"), configExplicit(cmd))
		if err != nil {
			return err
		}
		if err := doc.SetupLogging(); err != nil {
			return err
		}
		applyFlagOverrides(cmd, v, doc)

		build, err := doc.ToBuild(args)
		if err != nil {
			return err
		}

		u := &uploader.Uploader{
			Config:         doc.Upload,
			Defaults:       doc.Defaults,
			TlsConfig:      doc.TLSConfig(),
			ConnectTimeout: doc.Client.ConnectTimeout,
			ReadTimeout:    doc.Client.ReadTimeout,
		}
		if !doc.MaskingEnabled() {
			m := common.NewMasker()
			m.SetEnabled(false)
			u.Masker = m
		}
		if !doc.History.Disabled {
			path := util.TrimWithDefault(doc.History.Path, artipost.HistoryDBFileName)
			st, err := artipost.OpenHistory(path)
			if err != nil {
				common.GetLogger().Warn("history store unavailable", "path", path, "error", err)
			} else {
				defer func() { _ = st.Close() }()
				u.Recorder = st
			}
		}

		res := u.Run(context.Background(), build)
		if res.Skipped {
			fmt.Printf("upload skipped: %s\n", res.SkipReason)
			return nil
		}
		if res.StatusCode > 0 {
			fmt.Printf("uploaded %d artifact(s) to %s: %s (%dms)\n",
				len(build.Artifacts), res.URL, res.Status, res.Elapsed.Milliseconds())
			if res.ServerResult != "" {
				fmt.Printf("server result: %s\n", res.ServerResult)
			}
		} else {
			// the error has been logged already; the command still succeeds
			fmt.Printf("upload to %s did not complete\n", res.URL)
		}
		return nil
	},
}

// loadDoc reads the config file when one is present. A missing default config
// is not an error: uploads can be driven entirely by flags and arguments. Only
// a path the user named explicitly (flag or ARTIPOST_CONFIG) must exist.
func loadDoc(path string, explicit bool) (*config.ConfigDoc, error) {
	doc := &config.ConfigDoc{}
	p, ok := util.TrimEmptyCheck(path)
	if !ok {
		return doc, nil
	}
	if err := doc.Load(p); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("load config %s: %w", p, err)
	}
	return doc, nil
}

// configExplicit reports whether the user named the config path themselves
// rather than relying on the default.
func configExplicit(cmd *cobra.Command) bool {
	if f := cmd.Flags().Lookup("config"); f != nil && f.Changed {
		return true
	}
	// the flag is persistent on the root command
	if f := cmd.Root().PersistentFlags().Lookup("config"); f != nil && f.Changed {
		return true
	}
	return strings.TrimSpace(os.Getenv("ARTIPOST_CONFIG")) != ""
}

// applyFlagOverrides lets flags and ARTIPOST_* env vars override the config
// file, keeping the same precedence the two config tiers use: non-empty wins.
// Flags are read from the invoked command's own flag set, so two commands may
// define the same flag name; viper only supplies the env fallback.
func applyFlagOverrides(cmd *cobra.Command, v *viper.Viper, doc *config.ConfigDoc) {
	if s, ok := util.TrimEmptyCheck(stringOverride(cmd, v, "url", "url")); ok {
		doc.Upload.URL = s
	}
	if s := stringOverride(cmd, v, "headers", "headers"); strings.TrimSpace(s) != "" {
		doc.Upload.Headers = s
	}
	if s, ok := util.TrimEmptyCheck(stringOverride(cmd, v, "job-name", "job_name")); ok {
		doc.Build.JobName = s
	}
	if n := intOverride(cmd, v, "build-number", "build_number"); n > 0 {
		doc.Build.Number = n
	}
	if s, ok := util.TrimEmptyCheck(stringOverride(cmd, v, "result", "result")); ok {
		doc.Build.Result = s
	}
}

func stringOverride(cmd *cobra.Command, v *viper.Viper, flag, key string) string {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		return f.Value.String()
	}
	return v.GetString(key)
}

func intOverride(cmd *cobra.Command, v *viper.Viper, flag, key string) int {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		if n, err := cmd.Flags().GetInt(flag); err == nil {
			return n
		}
	}
	return v.GetInt(key)
}
