package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/siphon-dl/siphon/internal/config"
	"github.com/siphon-dl/siphon/internal/history"
	"github.com/siphon-dl/siphon/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show details for a past download by ID (or unique ID prefix)",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := history.Open(config.GetHistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.ResolvePrefix(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("id:          %s\n", e.ID)
	fmt.Printf("url:         %s\n", e.URL)
	fmt.Printf("filename:    %s\n", e.Filename)
	fmt.Printf("destination: %s\n", e.Destination)
	fmt.Printf("size:        %s\n", utils.ConvertBytesToHumanReadable(e.TotalSize))
	fmt.Printf("status:      %s\n", e.Status)
	if e.Error != "" {
		fmt.Printf("error:       %s\n", e.Error)
	}
	fmt.Printf("started:     %s\n", e.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("completed:   %s\n", e.CompletedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("elapsed:     %s\n", e.Elapsed().Round(time.Second))
	return nil
}
