package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <asset-id>",
	Short: "Re-dispatch an asset through its processing pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runReprocess,
}

func runReprocess(cmd *cobra.Command, args []string) error {
	assetID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid asset id: %w", err)
	}

	ctx := cmd.Context()
	dispatcher, client, err := newDispatcher(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	handle, err := dispatcher.Redispatch(ctx, assetID)
	if err != nil {
		return err
	}
	if !handle.Queued {
		return fmt.Errorf("asset was not queued (queue %q unavailable or no pipeline for its type)", handle.Queue)
	}

	fmt.Printf("%s queued asset %s on %s (job %s)\n",
		color.GreenString("✓"), assetID, handle.Queue, handle.ID)
	return nil
}
