package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/siphon-dl/siphon/internal/config"
	"github.com/siphon-dl/siphon/internal/history"
	"github.com/siphon-dl/siphon/internal/utils"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List past downloads",
	RunE:  runLs,
}

func init() {
	lsCmd.Flags().Bool("json", false, "output as JSON")
}

func runLs(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := history.Open(config.GetHistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List()
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("no downloads yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tSIZE\tELAPSED")
	for _, e := range entries {
		id := e.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			id, e.Filename, e.Status,
			utils.ConvertBytesToHumanReadable(e.TotalSize),
			e.Elapsed().Round(time.Second),
		)
	}
	return w.Flush()
}
