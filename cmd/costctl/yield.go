package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/metrics"
	"github.com/Simplici0/stackcost/internal/report"
	"github.com/Simplici0/stackcost/internal/yield"
)

func (c *cli) yieldCmd() *cobra.Command {
	var (
		file string
		save bool
	)

	cmd := &cobra.Command{
		Use:   "yield",
		Short: "Calculate strip yield and weights from a strip file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := yield.DefaultInputs()
			if err := readYAML(file, &in); err != nil {
				return err
			}

			calc := yield.Calculate(in)
			metrics.RecordCalculation(metrics.KindYield)
			if err := printYield(cmd.OutOrStdout(), calc); err != nil {
				return err
			}

			if !save {
				return nil
			}
			label := in.Label
			if label == "" {
				label = file
			}
			return c.withResources(cmd, func(rt *resources) error {
				entry, err := rt.store.Save(cmd.Context(), history.CollectionYield, label, calc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", entry.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML strip file")
	cmd.Flags().BoolVar(&save, "save", false, "save the calculation to history")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func printYield(out io.Writer, calc yield.Calculation) error {
	res := calc.Result

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tNET MM2\tPER STROKE MM2\tWEIGHT G")
	for _, r := range res.Components {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s%s\n", r.Name,
			report.Fixed(r.NetAreaMm2, 2), report.Fixed(r.TotalAreaMm2, 2), report.Fixed(r.WeightG, 3),
			negativeMark(r.NetAreaMm2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nStrip area:   %s mm2\n", report.Fixed(res.StripAreaMm2, 2))
	fmt.Fprintf(out, "Finish area:  %s mm2\n", report.Fixed(res.TotalFinishAreaMm2, 2))
	fmt.Fprintf(out, "Gross yield:  %s %%%s\n", report.Fixed(res.GrossYieldPct, 2), negativeMark(res.GrossYieldPct))
	fmt.Fprintf(out, "Net yield:    %s %%%s\n", report.Fixed(res.NetYieldPct, 2), negativeMark(res.NetYieldPct))
	fmt.Fprintf(out, "Gross weight: %s g\n", report.Fixed(res.GrossWeightG, 3))
	fmt.Fprintf(out, "Net weight:   %s g\n", report.Fixed(res.NetWeightG, 3))
	return nil
}

func negativeMark(v float64) string {
	if v < 0 {
		return "  (negative)"
	}
	return ""
}
