package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loomcms/loom/pkg/loom"
	"github.com/loomcms/loom/pkg/loom/repo/sqlite"
)

// Global flag values.
var (
	flagData  string
	flagJSON  bool
	flagActor string
)

// Initialized by initService in PersistentPreRunE.
var (
	svc      loom.Service
	repo     *sqlite.Repository
	cliActor loom.Actor
)

var rootCmd = &cobra.Command{
	Use:   "loomctl",
	Short: "loomctl manages a local loom content store",
	Long: `loomctl manages content types and entries in a loom store backed by a
local SQLite database. It is an administration tool: every operation runs
with a privileged actor.`,
	SilenceUsage:      true,
	PersistentPreRunE: initService,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if repo != nil {
			return repo.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagData, "data", "", "sqlite database file (default: loom.db, or $LOOM_DATA)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "actor id recorded on mutations (default: $LOOM_ACTOR_ID or a fresh id)")

	viper.SetEnvPrefix("LOOM")
	viper.AutomaticEnv()
	viper.SetDefault("data", "loom.db")

	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(entriesCmd)
}

func initService(cmd *cobra.Command, args []string) error {
	dataPath := flagData
	if dataPath == "" {
		dataPath = viper.GetString("data")
	}

	actorID := flagActor
	if actorID == "" {
		actorID = viper.GetString("actor_id")
	}
	if actorID != "" {
		id, err := uuid.Parse(actorID)
		if err != nil {
			return fmt.Errorf("invalid actor id %q: %w", actorID, err)
		}
		cliActor = loom.Actor{ID: id, Privileged: true}
	} else {
		cliActor = loom.Actor{ID: uuid.New(), Privileged: true}
	}

	var err error
	repo, err = sqlite.Open(dataPath)
	if err != nil {
		return err
	}

	svc, err = loom.New(context.Background(), loom.WithRepository(repo))
	if err != nil {
		repo.Close()
		return err
	}
	return nil
}

// printResult writes v as indented JSON when --json is set, otherwise via
// the fallback line printer.
func printResult(v interface{}, plain func()) error {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	plain()
	return nil
}
