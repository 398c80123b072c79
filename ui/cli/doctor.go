// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarveshkapre/secretive-x/internal/model"
)

// doctorCmd checks local prerequisites. It exits 1 when any check fails;
// warnings alone leave the exit code at 0.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check local prerequisites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := appCore.Doctor(cmd.Context())

		if jsonOutput {
			if err := printJSON(report); err != nil {
				return err
			}
		} else {
			for _, check := range report.Checks {
				line := fmt.Sprintf("%s: %s", check.Name, doctorStatusWord(check.Status))
				if check.Detail != "" {
					line += fmt.Sprintf(" (%s)", check.Detail)
				}
				fmt.Println(line)
			}
		}

		if !report.Healthy {
			return &exitError{code: 1}
		}
		return nil
	},
}

func doctorStatusWord(status string) string {
	switch status {
	case model.DoctorOK:
		return "OK"
	case model.DoctorWarn:
		return "WARN"
	default:
		return "FAIL"
	}
}

func registerDoctorCommand(root *cobra.Command) {
	root.AddCommand(doctorCmd)
}
