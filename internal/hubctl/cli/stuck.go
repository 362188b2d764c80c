package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var stuckOlderThan time.Duration

var stuckCmd = &cobra.Command{
	Use:   "stuck",
	Short: "Find and requeue assets stranded in PENDING",
	Long: `Find assets that stayed PENDING past the given age, meaning their
dispatch never reached the queue, and requeue them.`,
	RunE: runStuck,
}

func init() {
	stuckCmd.Flags().DurationVar(&stuckOlderThan, "older-than", 30*time.Minute, "Minimum age of PENDING assets to requeue")
}

func runStuck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dispatcher, client, err := newDispatcher(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	requeued, err := dispatcher.SweepStuck(ctx, stuckOlderThan)
	if err != nil {
		return err
	}
	if requeued == 0 {
		fmt.Println("no stuck assets found")
		return nil
	}

	fmt.Printf("%s requeued %d stuck asset(s)\n", color.GreenString("✓"), requeued)
	return nil
}
