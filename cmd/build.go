package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/pathwise/pathwise/internal/store"
	"github.com/spf13/cobra"
)

var buildOut string

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "content.db", "Output SQLite database")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build <tree.json>",
	Short: "Compile a JSON tree document into a SQLite content store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read tree document: %w", err)
		}

		w, err := store.NewSQLiteWriter(buildOut)
		if err != nil {
			return err
		}
		count := 0
		sink := func(n *store.Node) error {
			count++
			return w.WriteNode(n)
		}
		if err := sink(&store.Node{Path: "/", Type: "pathwise:root"}); err != nil {
			_ = w.Close()
			return err
		}
		if err := store.LoadJSONInto(data, sink); err != nil {
			_ = w.Close()
			return fmt.Errorf("load %s: %w", args[0], err)
		}
		if err := w.Close(); err != nil {
			return err
		}
		log.Printf("build: wrote %d nodes to %s", count, buildOut)
		return nil
	},
}
