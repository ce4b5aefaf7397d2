package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/medassist/device-assistant/internal/model"
)

var (
	askManufacturer string
	askModel        string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-off question about a device from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if askModel == "" {
			return eris.New("--model is required")
		}
		question := strings.Join(args, " ")

		env, err := initAssistant(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		identity := model.DeviceIdentity{
			Manufacturer: askManufacturer,
			Model:        askModel,
		}

		ans, err := env.Composer.Answer(cmd.Context(), identity, question, nil)
		if err != nil {
			return err
		}

		fmt.Println(ans.Text)
		if ans.IsFallback {
			fmt.Println("\n(no manual on file; answer is from general knowledge)")
			return nil
		}
		if len(ans.Sources) > 0 {
			fmt.Printf("\nSources (confidence %.2f):\n", ans.Confidence)
			for i, src := range ans.Sources {
				fmt.Printf("  [%d] page %s (score %.2f)\n", i+1, src.Page, src.Score)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askManufacturer, "manufacturer", "", "device manufacturer")
	askCmd.Flags().StringVar(&askModel, "model", "", "device model (required)")
	rootCmd.AddCommand(askCmd)
}
