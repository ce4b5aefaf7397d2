package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medassist/device-assistant/internal/manual"
)

var indexDevice string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build vector indexes for cataloged manuals ahead of time",
	Long:  "Resolves each cataloged device's manual and builds its vector index so the first question at serve time hits a warm index. Devices without manuals are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initAssistant(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var built, skipped, failed int
		for _, identity := range env.Catalog.Identities() {
			if indexDevice != "" && !strings.EqualFold(identity.DisplayName(), indexDevice) {
				continue
			}

			path, err := env.Resolver.Resolve(ctx, identity)
			if errors.Is(err, manual.ErrNoManual) {
				skipped++
				continue
			}
			if err != nil {
				zap.L().Warn("resolve manual failed",
					zap.String("device", identity.DisplayName()),
					zap.Error(err),
				)
				failed++
				continue
			}

			idx, err := env.Indexes.GetIndex(ctx, path)
			if err != nil {
				zap.L().Error("index build failed",
					zap.String("device", identity.DisplayName()),
					zap.Error(err),
				)
				failed++
				continue
			}

			zap.L().Info("index ready",
				zap.String("device", identity.DisplayName()),
				zap.String("manual", idx.ManualID),
				zap.Int("chunks", len(idx.Chunks)),
			)
			built++
		}

		zap.L().Info("indexing complete",
			zap.Int("built", built),
			zap.Int("skipped", skipped),
			zap.Int("failed", failed),
		)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexDevice, "device", "", `limit to one device ("Manufacturer Model")`)
	rootCmd.AddCommand(indexCmd)
}
