// Package config loads the JSON-backed run configuration described in
// §6: the trigger suffix, binary-extension set, destination URI
// prefix, worker count, and directory layout for a rewrite run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// RunConfig carries every run-time knob of §6.
type RunConfig struct {
	// GitDir is the source repository's .git directory (origin loose
	// objects live at GitDir/objects).
	GitDir string `json:"git_dir"`
	// DestObjectsDir is where rewritten trees, blobs, and commits are
	// written (C3's Destination).
	DestObjectsDir string `json:"dest_objects_dir"`
	// StagingDir is where extracted binary assets are copied before
	// upload to the external object store.
	StagingDir string `json:"staging_dir"`
	// URIPrefix is written into pointer blobs, e.g. "gs://my-bucket".
	URIPrefix string `json:"uri_prefix"`
	// TriggerSuffix names the special subtree, e.g. a directory named
	// "FooTests" or "BarTests" when TriggerSuffix is "Tests".
	TriggerSuffix string `json:"trigger_suffix"`
	// Extensions is the binary-classification extension set, kept as
	// written; NormalizedExtensions and SortedExtensions return it in
	// lowercase, dot-prefixed form.
	Extensions []string `json:"extensions"`
	// Workers is the tree-rewrite worker pool size; 0 means "use
	// runtime.NumCPU() * rewrite.DefaultWorkerMultiplier".
	Workers int `json:"workers"`
	// DryRun disables staging writes (§4.4's _SKIP_COPY_INTO_CGS),
	// useful for measuring the rewrite without moving data.
	DryRun bool `json:"dry_run"`
	// ResumeDBPath, if non-empty, enables the bbolt-backed resume
	// store at this path.
	ResumeDBPath string `json:"resume_db_path"`
	// Branch is the ref passed to `git rev-list --reverse` when no
	// cached rev-list file is supplied.
	Branch string `json:"branch"`
}

// defaultExtensions mirrors the original tool's _BIN_EXTS set (§6).
var defaultExtensions = []string{
	".aif", ".bin", ".bmp", ".cur", ".gif", ".icm", ".ico", ".jpeg",
	".jpg", ".m4a", ".m4v", ".mov", ".mp3", ".mp4", ".mpg", ".oga",
	".ogg", ".ogv", ".otf", ".pdf", ".png", ".sitx", ".swf", ".tiff",
	".ttf", ".wav", ".webm", ".webp", ".woff", ".woff2", ".zip",
}

// DefaultConfig returns a RunConfig with the defaults from §6.
func DefaultConfig() *RunConfig {
	exts := make([]string, len(defaultExtensions))
	copy(exts, defaultExtensions)
	return &RunConfig{
		DestObjectsDir: "/mnt/git-objects/",
		StagingDir:     "/mnt/gcs-bucket/",
		URIPrefix:      "gs://example-bucket",
		TriggerSuffix:  "Tests",
		Extensions:     exts,
		Workers:        0,
		DryRun:         false,
		Branch:         "main",
	}
}

// LoadConfig reads a JSON run config from path and merges it onto
// DefaultConfig: fields absent from the file (zero-valued) keep the
// default. A missing file is not an error; it yields the defaults.
func LoadConfig(path string) (*RunConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fileCfg RunConfig
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// SaveConfig writes cfg as indented JSON to path, for generating a
// starting template to edit.
func SaveConfig(path string, cfg *RunConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// NormalizedExtensions returns cfg.Extensions as a lowercase,
// dot-prefixed, deduplicated set suitable for mangle.Config.
func (cfg *RunConfig) NormalizedExtensions() map[string]struct{} {
	out := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		if ext == "" {
			continue
		}
		out[normalizeExt(ext)] = struct{}{}
	}
	return out
}

// SortedExtensions returns the normalized extension set as a sorted
// slice, matching the ordering the ignore-blob builder requires.
func (cfg *RunConfig) SortedExtensions() []string {
	set := cfg.NormalizedExtensions()
	out := make([]string, 0, len(set))
	for ext := range set {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeExt(ext string) string {
	if ext[0] != '.' {
		ext = "." + ext
	}
	lower := make([]byte, len(ext))
	for i := 0; i < len(ext); i++ {
		c := ext[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	return string(lower)
}

// mergeConfig overlays non-zero fields of src onto dst.
func mergeConfig(dst, src *RunConfig) {
	if src.GitDir != "" {
		dst.GitDir = src.GitDir
	}
	if src.DestObjectsDir != "" {
		dst.DestObjectsDir = src.DestObjectsDir
	}
	if src.StagingDir != "" {
		dst.StagingDir = src.StagingDir
	}
	if src.URIPrefix != "" {
		dst.URIPrefix = src.URIPrefix
	}
	if src.TriggerSuffix != "" {
		dst.TriggerSuffix = src.TriggerSuffix
	}
	if len(src.Extensions) > 0 {
		dst.Extensions = src.Extensions
	}
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
	if src.Branch != "" {
		dst.Branch = src.Branch
	}
	if src.ResumeDBPath != "" {
		dst.ResumeDBPath = src.ResumeDBPath
	}
	// DryRun is always merged: false is a meaningful explicit value.
	dst.DryRun = src.DryRun
}
