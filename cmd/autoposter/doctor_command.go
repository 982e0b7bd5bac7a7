package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"autoposter/internal/preflight"
	"autoposter/internal/stage"
)

type doctorReport struct {
	Checks []preflight.Result `json:"checks"`
	Agents []stage.Health     `json:"agents,omitempty"`
	Passed bool               `json:"passed"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, database, and external services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// A nil checker reports the database as unavailable.
			var db preflight.DatabaseChecker
			rt, openErr := ctx.ensureRuntime()
			if openErr == nil {
				db = rt.Store()
				defer ctx.close()
			}
			report := doctorReport{Checks: preflight.RunAll(cmd.Context(), cfg, db), Passed: true}
			if openErr != nil {
				report.Checks = append(report.Checks, preflight.Result{Name: "Runtime", Detail: openErr.Error()})
			} else {
				report.Agents = rt.AgentHealth(cmd.Context())
			}
			for _, check := range report.Checks {
				if !check.Passed {
					report.Passed = false
				}
			}

			if ctx.JSONMode() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printDoctorReport(cmd, report)
			}
			if !report.Passed {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
}

func printDoctorReport(cmd *cobra.Command, report doctorReport) {
	out := cmd.OutOrStdout()
	p := newStatusPrinter(out)
	fmt.Fprintln(out, "Checks")
	for _, check := range report.Checks {
		p.line(check.Name, passFail(check.Passed), check.Detail)
	}
	if len(report.Agents) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Agents")
	for _, h := range report.Agents {
		kind, detail := statusOK, "ready"
		if !h.Ready {
			kind, detail = statusWarn, h.Detail
		}
		p.line(h.Name, kind, detail)
	}
}
