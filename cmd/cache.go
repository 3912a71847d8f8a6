package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/parser-bench/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and evict cached parser artifacts",
}

var cacheInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show which artifacts exist for a cache key",
	RunE:  runCacheInspect,
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Force-remove every artifact under a cache key",
	Long: `Removes a key's raw, canonical, and Markdown artifacts. This is the
only way to overwrite cached output: the cache itself never replaces an
existing artifact.`,
	RunE: runCacheEvict,
}

func init() {
	for _, c := range []*cobra.Command{cacheInspectCmd, cacheEvictCmd} {
		f := c.Flags()
		f.String("parser", "", "parser name (required)")
		f.String("document", "", "document id (required)")
		f.Int("page", 0, "pdf page number (required)")
		f.Int("trial", 1, "trial number")
		_ = c.MarkFlagRequired("parser")
		_ = c.MarkFlagRequired("document")
		_ = c.MarkFlagRequired("page")
	}

	cacheCmd.AddCommand(cacheInspectCmd)
	cacheCmd.AddCommand(cacheEvictCmd)
	rootCmd.AddCommand(cacheCmd)
}

// cacheKeyFromFlags rebuilds the content address from flags plus the
// registered parser's current configuration fingerprint.
func cacheKeyFromFlags(cmd *cobra.Command) (cache.Key, error) {
	parser, _ := cmd.Flags().GetString("parser")
	document, _ := cmd.Flags().GetString("document")
	page, _ := cmd.Flags().GetInt("page")
	trial, _ := cmd.Flags().GetInt("trial")

	reg, err := buildRegistry()
	if err != nil {
		return cache.Key{}, err
	}
	p, err := reg.Get(parser)
	if err != nil {
		return cache.Key{}, err
	}

	return cache.Key{
		Parser:        parser,
		DocumentID:    document,
		Page:          page,
		Trial:         trial,
		AdapterConfig: p.ConfigFingerprint(),
	}, nil
}

func runCacheInspect(cmd *cobra.Command, _ []string) error {
	key, err := cacheKeyFromFlags(cmd)
	if err != nil {
		return err
	}
	c, err := openCache()
	if err != nil {
		return err
	}

	fmt.Printf("key: %s\n", key.Hash())
	for _, artifact := range []cache.Artifact{cache.ArtifactRaw, cache.ArtifactCanonical, cache.ArtifactMarkdown} {
		state := "missing"
		if c.Has(key, artifact) {
			state = "present"
		}
		fmt.Printf("  %-15s %s\n", artifact, state)
	}
	return nil
}

func runCacheEvict(cmd *cobra.Command, _ []string) error {
	key, err := cacheKeyFromFlags(cmd)
	if err != nil {
		return err
	}
	c, err := openCache()
	if err != nil {
		return err
	}
	if err := c.Remove(key); err != nil {
		return err
	}
	fmt.Printf("evicted %s\n", key.Hash())
	return nil
}
