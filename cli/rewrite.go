package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/javanhut/gitcs-filter/internal/colors"
	"github.com/javanhut/gitcs-filter/internal/config"
	"github.com/javanhut/gitcs-filter/internal/extract"
	"github.com/javanhut/gitcs-filter/internal/ferrors"
	"github.com/javanhut/gitcs-filter/internal/ignoreblob"
	"github.com/javanhut/gitcs-filter/internal/mangle"
	"github.com/javanhut/gitcs-filter/internal/objstore"
	"github.com/javanhut/gitcs-filter/internal/resume"
	"github.com/javanhut/gitcs-filter/internal/revlist"
	"github.com/javanhut/gitcs-filter/internal/rewrite"
)

var (
	rewriteConfigPath    string
	rewriteRevListPath   string
	rewriteGitDir        string
	rewriteDestDir       string
	rewriteStagingDir    string
	rewriteURIPrefix     string
	rewriteTriggerSuffix string
	rewriteWorkers       int
	rewriteDryRun        bool
	rewriteBranch        string
	rewriteResumeDB      string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite repository history, moving large binaries out of the object graph",
	Long: `Rewrite walks every commit reachable from a branch (or a cached rev-list
file), copies each binary asset found under a trigger directory out to an
external staging area, replaces it in the tree with a small pointer blob, and
synthesizes a .gitignore covering the extracted extensions. Tree rewrites run
in parallel; the commit chain is then relinked serially so parent pointers
stay correct.

Examples:
  gitcs-filter rewrite --git-dir .git --dest-objects /mnt/new-objects \
      --staging /mnt/gcs-staging --uri-prefix gs://my-bucket --branch main

  gitcs-filter rewrite --config rewrite.json --rev-list cached-revs.txt`,
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().StringVar(&rewriteConfigPath, "config", "", "path to a JSON run config (see config.DefaultConfig for defaults)")
	rewriteCmd.Flags().StringVar(&rewriteRevListPath, "rev-list", "", "path to a cached `git rev-list --format=%T --reverse` listing, instead of invoking git")
	rewriteCmd.Flags().StringVar(&rewriteGitDir, "git-dir", "", "source repository's .git directory")
	rewriteCmd.Flags().StringVar(&rewriteDestDir, "dest-objects", "", "directory to write rewritten objects into")
	rewriteCmd.Flags().StringVar(&rewriteStagingDir, "staging", "", "directory to stage extracted binary assets into")
	rewriteCmd.Flags().StringVar(&rewriteURIPrefix, "uri-prefix", "", "URI prefix written into pointer blobs, e.g. gs://my-bucket")
	rewriteCmd.Flags().StringVar(&rewriteTriggerSuffix, "trigger-suffix", "", "special-subtree name suffix, e.g. Tests")
	rewriteCmd.Flags().IntVar(&rewriteWorkers, "workers", 0, "tree-rewrite worker pool size (0 = auto)")
	rewriteCmd.Flags().BoolVar(&rewriteDryRun, "dry-run", false, "skip writing staged files; still rewrites objects")
	rewriteCmd.Flags().StringVar(&rewriteBranch, "branch", "", "branch to pass to git rev-list when --rev-list is not given")
	rewriteCmd.Flags().StringVar(&rewriteResumeDB, "resume-db", "", "path to a bbolt resume database, for restartable runs")

	rootCmd.AddCommand(rewriteCmd)
}

func runRewrite(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(rewriteConfigPath)
	if err != nil {
		return err
	}
	overrideConfig(cfg)

	if cfg.GitDir == "" {
		return fmt.Errorf("--git-dir (or config.git_dir) is required")
	}
	if cfg.DestObjectsDir == "" {
		return fmt.Errorf("--dest-objects (or config.dest_objects_dir) is required")
	}

	originDir := filepath.Join(cfg.GitDir, "objects")
	fmt.Println(colors.InfoText("orig objects: " + originDir))
	fmt.Println(colors.InfoText("new objects: " + cfg.DestObjectsDir))

	origin := objstore.NewOrigin(originDir)
	dest, err := objstore.NewDestination(cfg.DestObjectsDir)
	if err != nil {
		return err
	}

	sinkEnabled := !cfg.DryRun
	if sinkEnabled {
		fmt.Println(colors.InfoText("staging area: " + cfg.StagingDir))
	} else {
		fmt.Println(colors.WarningText("dry-run: omitting staged file generation"))
	}
	sink := extract.NewSink(cfg.StagingDir, sinkEnabled)

	list, err := loadRevList(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Printf("got %d revisions to rewrite\n", len(list.Commits))

	var resumeStore *resume.Store
	if cfg.ResumeDBPath != "" {
		resumeStore, err = resume.Open(cfg.ResumeDBPath)
		if err != nil {
			return err
		}
		defer resumeStore.Close()
	}

	tables := mangle.NewTables()
	mangler := &mangle.Mangler{
		Origin: origin,
		Dest:   dest,
		Sink:   sink,
		Ignore: ignoreblob.New(cfg.SortedExtensions()),
		Tables: tables,
		Config: mangle.Config{
			TriggerSuffix: cfg.TriggerSuffix,
			Extensions:    cfg.NormalizedExtensions(),
			URIPrefix:     cfg.URIPrefix,
		},
	}

	fmt.Println("\nstep 1: rewriting trees in parallel")
	driver := &rewrite.TreeDriver{Mangler: mangler, Workers: cfg.Workers, Resume: resumeStore}
	if err := driver.RewriteTrees(list.Trees); err != nil {
		return fmt.Errorf("rewriting trees: %w", err)
	}

	fmt.Println("\nstep 2: rewriting commits serially")
	commitRewriter := &rewrite.CommitRewriter{Origin: origin, Dest: dest, Tables: tables}
	newTip, err := commitRewriter.RewriteCommits(list.Commits)
	if err != nil {
		return fmt.Errorf("rewriting commits: %w", err)
	}

	fmt.Println(colors.SuccessText(fmt.Sprintf("\nnew branch tip: %s", newTip)))
	fmt.Println(colors.WarningText("you should now run `git fsck` on the rewritten object store."))
	return nil
}

func overrideConfig(cfg *config.RunConfig) {
	if rewriteGitDir != "" {
		cfg.GitDir = rewriteGitDir
	}
	if rewriteDestDir != "" {
		cfg.DestObjectsDir = rewriteDestDir
	}
	if rewriteStagingDir != "" {
		cfg.StagingDir = rewriteStagingDir
	}
	if rewriteURIPrefix != "" {
		cfg.URIPrefix = rewriteURIPrefix
	}
	if rewriteTriggerSuffix != "" {
		cfg.TriggerSuffix = rewriteTriggerSuffix
	}
	if rewriteWorkers != 0 {
		cfg.Workers = rewriteWorkers
	}
	if rewriteBranch != "" {
		cfg.Branch = rewriteBranch
	}
	if rewriteResumeDB != "" {
		cfg.ResumeDBPath = rewriteResumeDB
	}
	if rewriteDryRun {
		cfg.DryRun = true
	}
}

func loadRevList(ctx context.Context, cfg *config.RunConfig) (*revlist.List, error) {
	if rewriteRevListPath != "" {
		f, err := os.Open(rewriteRevListPath)
		if err != nil {
			return nil, ferrors.IoError("open rev-list file %s: %s", rewriteRevListPath, err)
		}
		defer f.Close()
		fmt.Println("reading cached rev-list + trees from", rewriteRevListPath)
		return revlist.Parse(f)
	}
	fmt.Printf("running git rev-list against %s (branch %s), this might take a while\n", cfg.GitDir, cfg.Branch)
	return revlist.Run(ctx, cfg.GitDir, cfg.Branch)
}
