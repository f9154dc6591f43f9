package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/wunderbrand/internal/domain/questionnaire"
	"github.com/bryanwahyu/wunderbrand/internal/domain/scoring"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

func questionsCmd() *cobra.Command {
	var (
		tierName string
		file     string
	)
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Print the question flow for a tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tier.Parse(tierName)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, q := range catalog.ForTier(t) {
				req := " "
				if q.Required {
					req = "*"
				}
				fmt.Fprintf(out, "%2d %s [%s] %s\n   %s\n", i+1, req, q.Pillar, q.ID, q.Prompt)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&tierName, "tier", "t", string(tier.Snapshot), "Tier to list")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Validate and list a catalog YAML instead of the embedded one")
	return cmd
}

func loadCatalog(path string) (*questionnaire.Catalog, error) {
	if path == "" {
		return questionnaire.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return questionnaire.Parse(data)
}

func scoreCmd() *cobra.Command {
	var s scoring.PillarScores
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the WunderBrand Score for five pillar scores (0-20 each)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.Validate(); err != nil {
				return err
			}
			total := scoring.BrandAlignmentScore(s)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "score: %d/100 (%s)\n", total, scoring.ClassifyOverall(total).Title())
			fmt.Fprintf(out, "primary pillar: %s\n", scoring.PrimaryPillar(s).Title())
			for _, p := range scoring.AllPillars() {
				fmt.Fprintf(out, "  %-12s %2d/20 %s\n", p.Title(), s.Get(p), scoring.Classify(s.Get(p)).Title())
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&s.Positioning, "positioning", 0, "Positioning score")
	f.IntVar(&s.Messaging, "messaging", 0, "Messaging score")
	f.IntVar(&s.Visibility, "visibility", 0, "Visibility score")
	f.IntVar(&s.Credibility, "credibility", 0, "Credibility score")
	f.IntVar(&s.Conversion, "conversion", 0, "Conversion score")
	return cmd
}
