package cli

import (
	"github.com/spf13/cobra"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

type rangeFlags struct {
	from string
	to   string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.from, "from", "", "first date to evaluate (YYYY-MM-DD)")
	cmd.Flags().StringVar(&r.to, "to", "", "last date to evaluate (YYYY-MM-DD)")
}

func (r *rangeFlags) parse() (models.Range, error) {
	return models.ParseRange(r.from, r.to)
}

func newTrustCmd(a *app) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Score trust in every metric on every date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := rf.parse()
			if err != nil {
				return err
			}
			records, err := a.readRecords(a.file)
			if err != nil {
				return err
			}
			scores, err := a.engine.TrustScores(cmd.Context(), records, rng)
			if err != nil {
				return err
			}
			return a.write(map[string]interface{}{
				"user_id": records[0].UserID,
				"scores":  scores,
			})
		},
	}
	rf.register(cmd)
	return cmd
}

func newFederatedCmd(a *app) *cobra.Command {
	var cohortFiles []string
	cmd := &cobra.Command{
		Use:   "federated",
		Short: "Compare the user's aggregate profile with a cohort",
		Long: `Compare the user's per-metric mean profile with the combined profile of the
cohort files. Only aggregates are compared. With no cohort the score is 0.5.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := a.readRecords(a.file)
			if err != nil {
				return err
			}
			cohort := make([][]models.HealthRecord, 0, len(cohortFiles))
			for _, f := range cohortFiles {
				peer, err := a.readRecords(f)
				if err != nil {
					return err
				}
				cohort = append(cohort, peer)
			}
			out, err := a.engine.FederatedTrust(cmd.Context(), records, cohort)
			if err != nil {
				return err
			}
			return a.write(out)
		},
	}
	cmd.Flags().StringArrayVar(&cohortFiles, "cohort", nil, "record file of one cohort member (repeatable)")
	return cmd
}

func newAnomalyCmd(a *app) *cobra.Command {
	var (
		rf          rangeFlags
		onlyFlagged bool
	)
	cmd := &cobra.Command{
		Use:   "anomaly",
		Short: "Detect anomalous dates with drivers and narratives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := rf.parse()
			if err != nil {
				return err
			}
			records, err := a.readRecords(a.file)
			if err != nil {
				return err
			}
			results, err := a.engine.DetectAnomalies(cmd.Context(), records, rng)
			if err != nil {
				return err
			}
			if onlyFlagged {
				flagged := []models.AnomalyResult{}
				for _, r := range results {
					if r.IsAnomaly {
						flagged = append(flagged, r)
					}
				}
				results = flagged
			}
			return a.write(map[string]interface{}{
				"user_id": records[0].UserID,
				"results": results,
			})
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&onlyFlagged, "only-flagged", false, "print anomalous dates only")
	return cmd
}

func newCorrelationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "correlations",
		Short: "Pearson correlation for every metric pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := a.readRecords(a.file)
			if err != nil {
				return err
			}
			pairs, err := a.engine.Correlations(cmd.Context(), records)
			if err != nil {
				return err
			}
			return a.write(map[string]interface{}{
				"user_id":      records[0].UserID,
				"correlations": pairs,
			})
		},
	}
}

func newSecurityCmd(a *app) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Summarise signal integrity and detection quality",
		Long: `Summarise signal integrity and detection quality. Days with any absent metric
are the ground truth for precision, recall and mean time to detect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := rf.parse()
			if err != nil {
				return err
			}
			records, err := a.readRecords(a.file)
			if err != nil {
				return err
			}
			posture, err := a.engine.SecurityPosture(cmd.Context(), records, rng)
			if err != nil {
				return err
			}
			return a.write(map[string]interface{}{
				"user_id": records[0].UserID,
				"posture": posture,
			})
		},
	}
	rf.register(cmd)
	return cmd
}

func newSimulateCmd(a *app) *cobra.Command {
	var (
		mode     string
		fraction float64
		seed     int64
		metrics  []string
		summary  bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Corrupt a copy of the records and report what detection caught",
		Long: `Corrupt a copy of the records and re-run detection.

Modes:
  missing  clear metric values on the selected dates
  delay    move the selected records forward by the configured delay
  spoof    multiply metric values by the configured spoof factor
  noise    perturb one metric by bounded uniform noise`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := a.readRecords(a.file)
			if err != nil {
				return err
			}
			req := models.SimulationRequest{
				UserID:   records[0].UserID,
				Mode:     models.SimulationMode(mode),
				Fraction: fraction,
				Metrics:  metrics,
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			res, err := a.engine.Simulate(cmd.Context(), records, req)
			if err != nil {
				return err
			}
			if summary {
				res.ModifiedRecords = nil
			}
			return a.write(res)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "corruption mode: missing, delay, spoof or noise")
	cmd.Flags().Float64Var(&fraction, "fraction", 0.1, "fraction of records to corrupt, in (0, 1]")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (defaults to the configured seed)")
	cmd.Flags().StringSliceVar(&metrics, "metrics", nil, "restrict corruption to these metrics")
	cmd.Flags().BoolVar(&summary, "summary", false, "omit the modified records from the output")
	_ = cmd.MarkFlagRequired("mode")
	return cmd
}
