package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/Catalysis-Ingest/internal/application/ingest"
	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

type normalizeOptions struct {
	ReactionName  string
	ReactionClass string
	LabID         string
	SampleName    string
	NoResolve     bool
	Workers       int
}

// NewNormalizeCmd creates the normalize command.
func NewNormalizeCmd() *cobra.Command {
	opts := &normalizeOptions{}

	cmd := &cobra.Command{
		Use:   "normalize FILE...",
		Short: "Normalize lab-data files into reaction records",
		Long: "Reads each FILE (a local path or an s3://bucket/key URI; .csv, .xlsx or .h5),\n" +
			"rebuilds the measured reaction and prints its results summary.  Files are\n" +
			"processed concurrently; one failing file does not stop the others.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.ReactionName, "reaction-name", "", "reaction name recorded for every file")
	f.StringVar(&opts.ReactionClass, "reaction-class", "", "reaction class recorded with --reaction-name")
	f.StringVar(&opts.LabID, "lab-id", "", "lab id of the catalyst sample")
	f.StringVar(&opts.SampleName, "sample-name", "", "name of the catalyst sample")
	f.BoolVar(&opts.NoResolve, "no-resolve", false, "skip the external substance lookup")
	f.IntVar(&opts.Workers, "workers", 0, "concurrent files (default: ingest.workers)")
	return cmd
}

func runNormalize(cmd *cobra.Command, args []string, opts *normalizeOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	cfg := *cliCtx.Config
	if opts.NoResolve {
		cfg.Ingest.ResolveNames = false
	}
	if opts.Workers > 0 {
		cfg.Ingest.Workers = opts.Workers
	}

	rt, err := Bootstrap(&cfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()

	inputs := make([]*ingest.IngestInput, len(args))
	for i, src := range args {
		in := &ingest.IngestInput{
			Source:        src,
			ReactionName:  opts.ReactionName,
			ReactionClass: opts.ReactionClass,
		}
		if opts.LabID != "" || opts.SampleName != "" {
			in.Samples = []reaction.SampleRef{{LabID: opts.LabID, Name: opts.SampleName}}
		}
		inputs[i] = in
	}

	report := NewNormalizeReport(rt.Service.IngestAll(ctx, inputs))
	if err := PrintResult(cmd, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return errors.Newf(errors.ErrCodeDataSourceParse, "%d of %d files failed", report.Failed, len(report.Files))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Report
// ─────────────────────────────────────────────────────────────────────────────

// NormalizeReport summarizes a normalize run.
type NormalizeReport struct {
	Files     []NormalizedFile `json:"files"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// NormalizedFile is the outcome for one file.
type NormalizedFile struct {
	Source    string                   `json:"source"`
	ID        string                   `json:"id,omitempty"`
	Format    string                   `json:"format,omitempty"`
	Warnings  int                      `json:"warnings"`
	Reactants []string                 `json:"reactants,omitempty"`
	Products  []string                 `json:"products,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Results   *reaction.ResultsTree    `json:"results,omitempty"`
	Record    *reaction.ReactionRecord `json:"record,omitempty"`
}

// NewNormalizeReport converts batch items, keeping their order.
func NewNormalizeReport(items []ingest.BatchItem) *NormalizeReport {
	r := &NormalizeReport{Files: make([]NormalizedFile, 0, len(items))}
	for _, item := range items {
		f := NormalizedFile{Source: item.Input.Source}
		if item.Err != nil {
			f.Error = item.Err.Error()
			r.Failed++
			r.Files = append(r.Files, f)
			continue
		}
		res := item.Result
		f.ID = res.ID
		f.Format = res.Format
		f.Warnings = res.Warnings
		f.Results = res.Results
		f.Record = res.Record
		if s := reactionSummary(res.Results); s != nil {
			for _, re := range s.Reactants {
				f.Reactants = append(f.Reactants, re.Name)
			}
			for _, p := range s.Products {
				f.Products = append(f.Products, p.Name)
			}
		}
		r.Succeeded++
		r.Files = append(r.Files, f)
	}
	return r
}

// reactionSummary walks the tree without creating nodes.
func reactionSummary(t *reaction.ResultsTree) *reaction.ReactionSummary {
	if t == nil || t.Properties == nil || t.Properties.Catalytic == nil {
		return nil
	}
	return t.Properties.Catalytic.Reaction
}

func (r *NormalizeReport) String() string {
	var sb strings.Builder
	for _, f := range r.Files {
		if f.Error != "" {
			fmt.Fprintf(&sb, "%s: FAILED: %s\n", f.Source, f.Error)
			continue
		}
		fmt.Fprintf(&sb, "%s: ok id=%s format=%s warnings=%d reactants=[%s] products=[%s]\n",
			f.Source, f.ID, f.Format, f.Warnings, strings.Join(f.Reactants, ", "), strings.Join(f.Products, ", "))
	}
	fmt.Fprintf(&sb, "%d succeeded, %d failed", r.Succeeded, r.Failed)
	return sb.String()
}

func (r *NormalizeReport) TableHeaders() []string {
	return []string{"SOURCE", "FORMAT", "WARNINGS", "REACTANTS", "PRODUCTS", "STATUS"}
}

func (r *NormalizeReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Files))
	for _, f := range r.Files {
		status := "ok"
		if f.Error != "" {
			status = "failed: " + f.Error
		}
		rows = append(rows, []string{
			f.Source,
			f.Format,
			strconv.Itoa(f.Warnings),
			strings.Join(f.Reactants, ","),
			strings.Join(f.Products, ","),
			status,
		})
	}
	return rows
}

//Personal.AI order the ending
