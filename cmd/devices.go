package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/medassist/device-assistant/internal/catalog"
	"github.com/medassist/device-assistant/internal/model"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List cataloged devices and manual availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return err
		}

		printDevices(cmd.OutOrStdout(), cat)
		return nil
	},
}

func printDevices(w io.Writer, cat *catalog.Catalog) {
	byType := cat.ByType()
	for _, deviceType := range []model.DeviceType{
		model.DeviceTypeAnesthesiaMachine,
		model.DeviceTypeInfusionPump,
		model.DeviceTypePatientMonitor,
		model.DeviceTypeOther,
	} {
		entries := byType[deviceType]
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", deviceType)
		for _, e := range entries {
			marker := " "
			if e.HasManual {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %s %s\n", marker, e.Manufacturer, e.Model)
		}
	}
	fmt.Fprintln(w, "\n* manual available")
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
