package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/metrics"
	"github.com/Simplici0/stackcost/internal/report"
)

// estimateJob is the YAML job file layout. Missing keys take system defaults.
type estimateJob struct {
	Common     costing.CommonInputs      `yaml:"common"`
	Components []costing.ComponentInputs `yaml:"components"`
}

func loadEstimateJob(path string) (estimateJob, error) {
	job := estimateJob{Common: costing.DefaultCommonInputs()}
	if err := readYAML(path, &job); err != nil {
		return estimateJob{}, err
	}
	if len(job.Components) == 0 {
		job.Components = []costing.ComponentInputs{costing.DefaultComponent()}
	}
	return job, nil
}

func (c *cli) estimateCmd() *cobra.Command {
	var (
		file     string
		detailed string
		summary  string
		xlsx     string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Calculate the landed cost of every component in a job file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := loadEstimateJob(file)
			if err != nil {
				return err
			}

			est := costing.Calculate(job.Common, job.Components)
			metrics.RecordCalculation(metrics.KindCost)
			if err := printEstimate(cmd.OutOrStdout(), est); err != nil {
				return err
			}

			if detailed != "" {
				if err := c.writePDF(detailed, report.Detailed(est)); err != nil {
					return err
				}
			}
			if summary != "" {
				if err := c.writePDF(summary, report.Summary(est)); err != nil {
					return err
				}
			}
			if xlsx != "" {
				if err := writeFile(xlsx, func(w io.Writer) error { return report.WriteXLSX(w, est) }); err != nil {
					return err
				}
			}

			if !save {
				return nil
			}
			return c.withResources(cmd, func(rt *resources) error {
				entry, err := rt.store.Save(cmd.Context(), history.CollectionCost, est.Common.ToolRefName, est)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", entry.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML job file")
	cmd.Flags().StringVar(&detailed, "detailed", "", "write the detailed PDF report to this path")
	cmd.Flags().StringVar(&summary, "summary", "", "write the summary PDF report to this path")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "write the Excel workbook to this path")
	cmd.Flags().BoolVar(&save, "save", false, "save the estimate to history")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func printEstimate(out io.Writer, est costing.Estimate) error {
	fmt.Fprintf(out, "Tool: %s\n", est.Common.ToolRefName)
	fmt.Fprintf(out, "Total cost per Kg: %s Rs\n\n", report.Fixed(est.Rates.TotalCostPerKg, 2))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "COMPONENT\tLAMS\tSTACK KG\tMFG\tPACKING\tTRANSPORT\tFINAL\t")
	for _, r := range est.Components {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Input.Name,
			report.Fixed(r.LamsPerStack, 2),
			report.Fixed(r.StackWeightKg, 3),
			report.Fixed(r.StackMfgCost, 2),
			report.Fixed(r.PackingCost, 2),
			report.Fixed(r.TransportCost, 2),
			report.Fixed(r.FinalStackCost, 2))
	}
	fmt.Fprintf(tw, "TOTAL LANDED\t\t\t\t\t\t%s\t\n", report.Fixed(est.TotalLandedCost(), 2))
	return tw.Flush()
}

func (c *cli) writePDF(path string, doc report.Document) error {
	return writeFile(path, func(w io.Writer) error { return report.WritePDF(w, doc, c.now()) })
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
