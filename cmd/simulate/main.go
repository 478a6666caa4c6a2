package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"empires-server/internal/persistence/runindex"
	"empires-server/internal/persistence/snapshot"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/config"
	"empires-server/internal/shared/logger"
	"empires-server/internal/simulation"
	"empires-server/internal/state"
	"empires-server/internal/turn"
	"empires-server/internal/universe"
)

var rootCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run unattended empire games for balance testing",
	Long: `simulate plays whole games with bot empires only (optionally plus an idle
player empire) and reports which mechanics fired and who won. Runs are
reproducible: the same seed, ruleset and empire count always produce the
same final state digest.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	rootCmd.AddCommand(runCmd(), runsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("EMPIRES")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("ruleset", "", "ruleset document (defaults to the embedded one)")
	rootCmd.PersistentFlags().String("variant", "", "ruleset variant (unified or legacy)")
	rootCmd.PersistentFlags().String("index", "", "sqlite run index path")
	for _, name := range []string{"json", "log-level", "ruleset", "variant", "index"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play one or more games from consecutive seeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := loadRuleset()
			if err != nil {
				return err
			}
			runner, err := simulation.NewRunner(rs, newLogger())
			if err != nil {
				return err
			}

			var idx *runindex.Index
			if path := viper.GetString("index"); path != "" {
				if idx, err = runindex.Open(path); err != nil {
					return err
				}
				defer idx.Close()
			}

			count := viper.GetInt("runs")
			if count < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			seed := viper.GetUint64("seed")
			results := make([]*simulation.Result, 0, count)
			for i := range count {
				res, snapPath, err := runOne(cmd.Context(), runner, seed+uint64(i))
				if err != nil {
					return err
				}
				if idx != nil {
					if err := idx.Record(cmd.Context(), res, snapPath); err != nil {
						return err
					}
				}
				results = append(results, res)
			}

			if viper.GetBool("json") {
				return printJSON(results)
			}
			renderResults(results)
			return nil
		},
	}
	cmd.Flags().Int("empires", 24, "empires per game")
	cmd.Flags().Int("turns", 200, "turn limit")
	cmd.Flags().Uint64("seed", 1, "first seed")
	cmd.Flags().Int("runs", 1, "number of games, one per consecutive seed")
	cmd.Flags().Int("protection", universe.DefaultProtection, "protection turns (-1 keeps the ruleset value)")
	cmd.Flags().Bool("player", false, "include an idle player empire")
	cmd.Flags().String("snapshot-dir", "", "write zstd snapshots of every checkpoint into this directory")
	for _, name := range []string{"empires", "turns", "seed", "runs", "protection", "player", "snapshot-dir"} {
		_ = viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}

func runOne(ctx context.Context, runner *simulation.Runner, seed uint64) (*simulation.Result, string, error) {
	dir := viper.GetString("snapshot-dir")
	var last string
	cfg := simulation.Config{
		GameID:          int64(seed%(1<<62)) + 1,
		EmpireCount:     viper.GetInt("empires"),
		TurnLimit:       viper.GetInt("turns"),
		ProtectionTurns: viper.GetInt("protection"),
		IncludePlayer:   viper.GetBool("player"),
		Seed:            seed,
	}
	if dir != "" {
		cfg.OnCheckpoint = func(st *state.State, rep *turn.Report) error {
			path := filepath.Join(dir, snapshot.Name(st.GameID, rep.Turn))
			if _, err := snapshot.Write(path, st); err != nil {
				return err
			}
			last = path
			return nil
		}
	}
	res, err := runner.Run(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	return res, last, nil
}

func runsCmd() *cobra.Command {
	var (
		seed  uint64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in the sqlite index",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("index")
			if path == "" {
				return fmt.Errorf("--index is required")
			}
			idx, err := runindex.Open(path)
			if err != nil {
				return err
			}
			defer idx.Close()

			runs, err := idx.List(cmd.Context(), seed, limit)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(runs)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Run", "Seed", "Variant", "Empires", "Turns", "Victory", "Winner", "Recorded"})
			for _, r := range runs {
				tw.AppendRow(table.Row{r.RunID, r.Seed, r.Variant, r.Empires, r.TurnsPlayed, r.VictoryType, r.WinnerID, r.RecordedAt.Format("2006-01-02 15:04")})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "only runs with this seed")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func renderResults(results []*simulation.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Seed", "Turns", "Victory", "Winner", "Survivors", "Invasions", "Guerillas", "Captured", "Eliminated", "Faults", "Digest"})
	for _, r := range results {
		c := r.Coverage
		tw.AppendRow(table.Row{
			r.Seed, r.TurnsPlayed, r.Outcome.VictoryType, r.Outcome.WinnerID, len(r.Survivors),
			c.Invasions, c.Guerillas, c.SectorsCaptured, c.Eliminations, c.Faults, r.Digest[:12],
		})
	}
	tw.Render()

	if len(results) == 1 {
		c := results[0].Coverage
		cov := table.NewWriter()
		cov.SetOutputMirror(os.Stdout)
		cov.AppendHeader(table.Row{"Mechanic", "Count"})
		cov.AppendRows([]table.Row{
			{"attacker wins", c.AttackerWins},
			{"builds ordered", c.BuildsOrdered},
			{"builds completed", c.BuildsCompleted},
			{"items crafted", c.ItemsCrafted},
			{"level ups", c.LevelUps},
			{"treaty offers", c.TreatyOffers},
			{"treaties expired", c.TreatiesExpired},
			{"messages", c.Messages},
			{"checkpoints", c.Checkpoints},
		})
		for kind, n := range c.Events {
			cov.AppendRow(table.Row{"event " + kind, n})
		}
		for reason, n := range c.Defeats {
			cov.AppendRow(table.Row{"defeat " + reason, n})
		}
		cov.SortBy([]table.SortBy{{Number: 1}})
		cov.Render()
	}
}

func loadRuleset() (*ruleset.Ruleset, error) {
	doc, err := ruleset.Default()
	if path := viper.GetString("ruleset"); path != "" {
		doc, err = ruleset.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ruleset: %w", err)
	}
	return doc.Variant(viper.GetString("variant"))
}

func newLogger() *slog.Logger {
	return logger.New(os.Stderr, config.LoggingConfig{Level: viper.GetString("log-level")})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
