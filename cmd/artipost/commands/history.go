package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/artipost"
	"github.com/loykin/artipost/internal/util"
)

var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent artifact upload attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		doc, err := loadDoc(v.GetString("config"), configExplicit(cmd))
		if err != nil {
			return err
		}

		path := util.TrimWithDefault(doc.History.Path, artipost.HistoryDBFileName)
		st, err := artipost.OpenHistory(path)
		if err != nil {
			return fmt.Errorf("open history %s: %w", path, err)
		}
		defer func() { _ = st.Close() }()

		entries, err := st.List(v.GetInt("limit"))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no uploads recorded")
			return nil
		}
		for _, e := range entries {
			status := fmt.Sprintf("%d", e.StatusCode)
			if e.Error != "" {
				status = "error: " + e.Error
			}
			fmt.Printf("%s  %s #%d  %s  %s  %dms\n",
				e.CreatedAt.Format(time.RFC3339), e.JobName, e.BuildNumber, e.URL, status, e.ElapsedMs)
		}
		return nil
	},
}
