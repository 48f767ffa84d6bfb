package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/andreyvit/pgraph"
)

// openGraph builds the config from --config and the override flags and
// opens the graph. The caller must Shutdown it.
func openGraph(cmd *cobra.Command) (*pgraph.Graph, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	backend, _ := flags.GetString("backend")
	path, _ := flags.GetString("path")
	verbose, _ := flags.GetBool("verbose")

	c := pgraph.DefaultConfig()
	if configPath != "" {
		var err error
		c, err = pgraph.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}
	if backend != "" {
		c.Backend = backend
	}
	if path != "" {
		c.Path = path
	}
	if verbose {
		c.Verbose = true
		c.Log.Level = "debug"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c.Open(c.NewLogger(os.Stderr), nil)
}

// withGraph runs f in a session that is committed if f succeeds.
func withGraph(cmd *cobra.Command, f func(s *pgraph.Session) error) (err error) {
	g, err := openGraph(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if serr := g.Shutdown(); err == nil {
			err = serr
		}
	}()
	return g.Update(f)
}

func kindFlag(cmd *cobra.Command) (pgraph.ElementKind, error) {
	s, _ := cmd.Flags().GetString("kind")
	switch strings.ToLower(s) {
	case "vertex", "v":
		return pgraph.VertexKind, nil
	case "edge", "e":
		return pgraph.EdgeKind, nil
	default:
		return 0, fmt.Errorf("unknown element kind %q", s)
	}
}

func runKeysList(cmd *cobra.Command, args []string) error {
	return withGraph(cmd, func(s *pgraph.Session) error {
		for _, kind := range []pgraph.ElementKind{pgraph.VertexKind, pgraph.EdgeKind} {
			for _, key := range s.IndexedKeys(kind) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", kind, key)
			}
		}
		return nil
	})
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	return withGraph(cmd, func(s *pgraph.Session) error {
		var result *multierror.Error
		for _, key := range args {
			if err := s.CreateKeyIndex(key, kind); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s: %w", key, err))
			}
		}
		return result.ErrorOrNil()
	})
}

func runKeysDrop(cmd *cobra.Command, args []string) error {
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	return withGraph(cmd, func(s *pgraph.Session) error {
		var result *multierror.Error
		for _, key := range args {
			if err := s.DropKeyIndex(key, kind); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s: %w", key, err))
			}
		}
		return result.ErrorOrNil()
	})
}

func runIndexList(cmd *cobra.Command, args []string) error {
	return withGraph(cmd, func(s *pgraph.Session) error {
		indices, err := s.Indices()
		if err != nil {
			return err
		}
		for _, idx := range indices {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", idx.Kind(), idx.Name())
		}
		return nil
	})
}

func runIndexCreate(cmd *cobra.Command, args []string) error {
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	raw, _ := cmd.Flags().GetStringToString("param")
	var params []pgraph.Parameter
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		params = append(params, pgraph.Parameter{Key: k, Value: raw[k]})
	}
	return withGraph(cmd, func(s *pgraph.Session) error {
		_, err := s.CreateIndex(args[0], kind, params...)
		return err
	})
}

func runIndexDrop(cmd *cobra.Command, args []string) error {
	return withGraph(cmd, func(s *pgraph.Session) error {
		var result *multierror.Error
		for _, name := range args {
			if err := s.DropIndex(name); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	})
}

func runFind(cmd *cobra.Command, args []string) error {
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	return withGraph(cmd, func(s *pgraph.Session) error {
		var ids []uint64
		if kind == pgraph.EdgeKind {
			it, err := s.EdgesWith(args[0], args[1])
			if err != nil {
				return err
			}
			for e, err := range it.Seq() {
				if err != nil {
					return err
				}
				ids = append(ids, e.ID())
			}
		} else {
			it, err := s.VerticesWith(args[0], args[1])
			if err != nil {
				return err
			}
			for v, err := range it.Seq() {
				if err != nil {
					return err
				}
				ids = append(ids, v.ID())
			}
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	return withGraph(cmd, func(s *pgraph.Session) error {
		st, err := s.Stats()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "vertices:             %d\n", st.Vertices)
		fmt.Fprintf(w, "edges:                %d\n", st.Edges)
		fmt.Fprintf(w, "label entries:        %d\n", st.LabelEntries)
		fmt.Fprintf(w, "vertex key entries:   %d (%s)\n", st.VertexKeyIndexEntries, strings.Join(st.IndexedVertexKeys, ", "))
		fmt.Fprintf(w, "edge key entries:     %d (%s)\n", st.EdgeKeyIndexEntries, strings.Join(st.IndexedEdgeKeys, ", "))
		fmt.Fprintf(w, "named indexes:        %d\n", st.NamedIndexes)
		fmt.Fprintf(w, "named index entries:  %d\n", st.NamedIndexEntries)
		fmt.Fprintf(w, "storage size:         %d\n", st.StorageSize)
		return nil
	})
}

func runDump(cmd *cobra.Command, args []string) error {
	what, _ := cmd.Flags().GetStringSlice("what")
	var f pgraph.DumpFlags
	for _, w := range what {
		switch w {
		case "headers":
			f |= pgraph.DumpBucketHeaders
		case "records":
			f |= pgraph.DumpRecords
		case "stats":
			f |= pgraph.DumpStats
		case "catalog":
			f |= pgraph.DumpCatalog
		case "index":
			f |= pgraph.DumpIndexEntries
		case "all":
			f |= pgraph.DumpAll
		default:
			return fmt.Errorf("unknown dump section %q", w)
		}
	}
	return withGraph(cmd, func(s *pgraph.Session) error {
		fmt.Fprint(cmd.OutOrStdout(), s.Dump(f))
		return nil
	})
}
