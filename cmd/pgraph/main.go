// Command pgraph inspects and administers pgraph databases.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pgraph",
		Short: "Inspect and administer a pgraph database",
		Long: `pgraph opens a graph database directly (no server involved) and runs
one administrative command against it: key index and named index
management, statistics and storage dumps.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("backend", "", "storage backend: bolt, badger or memory (overrides config)")
	rootCmd.PersistentFlags().String("path", "", "database file or directory (overrides config)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log every transaction")

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Key index operations",
	}
	keysList := &cobra.Command{
		Use:   "list",
		Short: "List auto-indexed property keys",
		Args:  cobra.NoArgs,
		RunE:  runKeysList,
	}
	keysCreate := &cobra.Command{
		Use:   "create KEY...",
		Short: "Create key indexes, re-indexing existing values",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runKeysCreate,
	}
	keysDrop := &cobra.Command{
		Use:   "drop KEY...",
		Short: "Drop key indexes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runKeysDrop,
	}
	for _, c := range []*cobra.Command{keysCreate, keysDrop} {
		c.Flags().String("kind", "vertex", "element kind: vertex or edge")
	}
	keysCmd.AddCommand(keysList, keysCreate, keysDrop)
	rootCmd.AddCommand(keysCmd)

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Named index operations",
	}
	indexCreate := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a named index",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndexCreate,
	}
	indexCreate.Flags().String("kind", "vertex", "element kind: vertex or edge")
	indexCreate.Flags().StringToString("param", nil, "engine-specific index parameter (repeatable)")
	indexCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List named indexes",
			Args:  cobra.NoArgs,
			RunE:  runIndexList,
		},
		indexCreate,
		&cobra.Command{
			Use:   "drop NAME...",
			Short: "Drop named indexes",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runIndexDrop,
		},
	)
	rootCmd.AddCommand(indexCmd)

	findCmd := &cobra.Command{
		Use:   "find KEY VALUE",
		Short: "List ids of elements whose KEY property equals the string VALUE",
		Args:  cobra.ExactArgs(2),
		RunE:  runFind,
	}
	findCmd.Flags().String("kind", "vertex", "element kind: vertex or edge")
	rootCmd.AddCommand(findCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print graph statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	})

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump raw storage contents",
		Args:  cobra.NoArgs,
		RunE:  runDump,
	}
	dumpCmd.Flags().StringSlice("what", []string{"all"}, "sections: headers, records, stats, catalog, index, all")
	rootCmd.AddCommand(dumpCmd)

	return rootCmd
}
