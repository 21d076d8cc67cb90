// Command ort-merge-tree is a thin demo CLI around the ort core: it loads
// three tree ids already present in a memstore snapshot file, runs the
// merge, and prints the result the way the teacher's
// pkg/command/command_merge_tree.go formats merge-tree output (plain oid,
// name-only, NUL-terminated, or JSON). It is intentionally thin: no
// progress bars, no interactive conflict resolution.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ortmerge/ort/config"
	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/ort"
	"github.com/ortmerge/ort/store"
)

var rootConfiguration struct {
	help bool
}

var rootCommand = &cobra.Command{
	Use:          "ort-merge-tree",
	Short:        "Merge three trees in an in-memory object store snapshot",
	SilenceUsage: true,
}

func init() {
	flags := rootCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	rootCommand.AddCommand(mergeTreeCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}

var mergeTreeConfiguration struct {
	configPath             string
	nameOnly               bool
	nullTerminated          bool
	jsonOutput              bool
	detectDirectoryRenames string
	renameScore            int
	renameLimit            int
	verbose                bool
}

var mergeTreeCommand = &cobra.Command{
	Use:   "merge-tree <snapshot> <base> <side1> <side2>",
	Short: "Merge base/side1/side2 trees loaded from a JSON memstore snapshot",
	Args:  cobra.ExactArgs(4),
	RunE:  mergeTreeMain,
}

func init() {
	flags := mergeTreeCommand.Flags()
	flags.SortFlags = false
	flags.StringVar(&mergeTreeConfiguration.configPath, "config", "", "Path to a TOML defaults file")
	flags.BoolVar(&mergeTreeConfiguration.nameOnly, "name-only", false, "Print only conflicted paths")
	flags.BoolVarP(&mergeTreeConfiguration.nullTerminated, "null", "z", false, "NUL-terminate output records")
	flags.BoolVar(&mergeTreeConfiguration.jsonOutput, "json", false, "Print the result as JSON")
	flags.StringVar(&mergeTreeConfiguration.detectDirectoryRenames, "detect-directory-renames", "true", "one of: none, conflict, true")
	flags.IntVar(&mergeTreeConfiguration.renameScore, "rename-score", 0, "Minimum similarity score, 0 for default")
	flags.IntVar(&mergeTreeConfiguration.renameLimit, "rename-limit", 0, "Rename candidate limit, 0 for default")
	flags.BoolVarP(&mergeTreeConfiguration.verbose, "verbose", "v", false, "Trace per-path resolution decisions to stderr")
}

func mergeTreeMain(cmd *cobra.Command, args []string) error {
	snapshotPath, baseHex, side1Hex, side2Hex := args[0], args[1], args[2], args[3]

	st, err := store.LoadMemstoreSnapshot(snapshotPath)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	opts := ort.Options{
		LabelSide1: "HEAD",
		LabelSide2: "BRANCH",
		Verbose:    mergeTreeConfiguration.verbose,
	}
	if mergeTreeConfiguration.configPath != "" {
		cfg, err := config.Load(mergeTreeConfiguration.configPath)
		if err != nil {
			return err
		}
		opts = cfg.ApplyTo(opts)
	}
	// The flag's default only applies when the config file left the mode
	// unset; an explicitly given flag always wins.
	if cmd.Flags().Changed("detect-directory-renames") || opts.DetectDirectoryRenames == ort.DirRenameNone {
		switch mergeTreeConfiguration.detectDirectoryRenames {
		case "none":
			opts.DetectDirectoryRenames = ort.DirRenameNone
		case "conflict":
			opts.DetectDirectoryRenames = ort.DirRenameConflict
		default:
			opts.DetectDirectoryRenames = ort.DirRenameTrue
		}
	}
	if mergeTreeConfiguration.renameScore > 0 {
		opts.RenameScore = mergeTreeConfiguration.renameScore
	}
	if mergeTreeConfiguration.renameLimit > 0 {
		opts.RenameLimit = mergeTreeConfiguration.renameLimit
	}

	base := plumbing.ZeroHash
	if baseHex != "" && baseHex != "-" {
		base, err = plumbing.NewHashEx(baseHex)
		if err != nil {
			return fmt.Errorf("base: %w", err)
		}
	}
	side1, err := plumbing.NewHashEx(side1Hex)
	if err != nil {
		return fmt.Errorf("side1: %w", err)
	}
	side2, err := plumbing.NewHashEx(side2Hex)
	if err != nil {
		return fmt.Errorf("side2: %w", err)
	}

	result, err := ort.Merge(context.Background(), st, base, side1, side2, opts)
	if err != nil {
		return err
	}

	return printResult(result)
}

func printResult(result *ort.Result) error {
	if mergeTreeConfiguration.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	sep := "\n"
	if mergeTreeConfiguration.nullTerminated {
		sep = "\x00"
	}

	if mergeTreeConfiguration.nameOnly {
		for _, e := range result.Unmerged {
			fmt.Printf("%s%s", e.Path, sep)
		}
		return nil
	}

	fmt.Printf("%s%s", result.Tree, sep)
	for _, e := range result.Unmerged {
		fmt.Printf("%o %s %d\t%s%s", uint32(e.Mode), e.Oid, e.Stage, e.Path, sep)
	}
	if !result.Clean {
		os.Exit(1)
	}
	return nil
}
