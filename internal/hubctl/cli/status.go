package cli

import (
	"fmt"

	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <asset-id>",
	Short: "Show an asset's processing state and variants",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	assetID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid asset id: %w", err)
	}

	ctx := cmd.Context()
	asset, err := store.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}

	fmt.Printf("Asset:     %s\n", asset.ID)
	fmt.Printf("File key:  %s\n", asset.FileKey)
	fmt.Printf("MIME type: %s\n", asset.MimeType)
	fmt.Printf("Status:    %s\n", colorStatus(asset.ProcessingStatus))
	if asset.ProcessingError != nil {
		fmt.Printf("Error:     %s\n", color.RedString(*asset.ProcessingError))
	}
	if asset.Width != nil && asset.Height != nil {
		fmt.Printf("Size:      %dx%d\n", *asset.Width, *asset.Height)
	}
	if asset.Duration != nil {
		fmt.Printf("Duration:  %.1fs\n", *asset.Duration)
	}
	if asset.ThumbnailKey != nil {
		fmt.Printf("Thumbnail: %s\n", *asset.ThumbnailKey)
	}
	if asset.PreviewKey != nil {
		fmt.Printf("Preview:   %s\n", *asset.PreviewKey)
	}

	variants, err := store.ListVariants(ctx, assetID)
	if err != nil {
		return err
	}
	if len(variants) > 0 {
		fmt.Println("\nVariants:")
		for _, v := range variants {
			fmt.Printf("  %-14s %dx%-5d %8d bytes  %s\n",
				v.VariantType, v.Width, v.Height, v.FileSize, v.FileKey)
		}
	}
	return nil
}

func colorStatus(status catalog.ProcessingStatus) string {
	switch status {
	case catalog.StatusCompleted:
		return color.GreenString(string(status))
	case catalog.StatusFailed:
		return color.RedString(string(status))
	case catalog.StatusProcessing:
		return color.CyanString(string(status))
	default:
		return color.YellowString(string(status))
	}
}
