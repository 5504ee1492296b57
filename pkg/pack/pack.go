// Package pack orchestrates building charm artifacts: it selects build
// variants by substrate and tags, invokes the external charm build tool
// for each, and renames the produced artifacts to predictable names.
package pack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbus/charmbus/pkg/log"
)

// DefaultTool is the charm build tool invoked per variant.
const DefaultTool = "charmcraft"

// Variant is one buildable flavor of a charm project.
type Variant struct {
	// Name of the variant; artifacts are renamed after it
	Name string `json:"name" yaml:"name"`

	// Substrate the variant targets, e.g. "k8s" or "vm"
	Substrate string `json:"substrate" yaml:"substrate"`

	// Tags further classifying the variant
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Path of the charm project directory
	Path string `json:"path" yaml:"path"`
}

// Artifact is one built charm archive.
type Artifact struct {
	Variant string
	Path    string
}

// Runner executes the build tool. Injected so tests never exec.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Packer builds charm artifacts for a selection of variants.
type Packer struct {
	tool      string
	outputDir string
	substrate string
	tags      []string
	runner    Runner
	logger    log.Logger
}

// Option configures a Packer.
type Option func(*Packer)

// WithTool overrides the build tool binary.
func WithTool(tool string) Option {
	return func(p *Packer) {
		p.tool = tool
	}
}

// WithOutputDir sets where renamed artifacts are placed. Defaults to the
// current directory.
func WithOutputDir(dir string) Option {
	return func(p *Packer) {
		p.outputDir = dir
	}
}

// WithSubstrate restricts the selection to variants of one substrate.
func WithSubstrate(substrate string) Option {
	return func(p *Packer) {
		p.substrate = substrate
	}
}

// WithTags restricts the selection to variants carrying all given tags.
func WithTags(tags ...string) Option {
	return func(p *Packer) {
		p.tags = tags
	}
}

// WithRunner overrides the command runner.
func WithRunner(runner Runner) Option {
	return func(p *Packer) {
		p.runner = runner
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(p *Packer) {
		p.logger = logger
	}
}

// New creates a Packer.
func New(opts ...Option) *Packer {
	p := &Packer{
		tool:      DefaultTool,
		outputDir: ".",
		runner:    &execRunner{},
		logger:    log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("pack")
	return p
}

// Select filters variants by the configured substrate and tags. An empty
// substrate matches every substrate; a variant is kept only if it carries
// every configured tag.
func (p *Packer) Select(variants []Variant) []Variant {
	var out []Variant
	for _, v := range variants {
		if p.substrate != "" && v.Substrate != p.substrate {
			continue
		}
		if !hasAllTags(v.Tags, p.tags) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Pack builds every selected variant in order, renaming each produced
// archive to "<variant>.charm" in the output directory. The first failing
// build aborts the run; there are no retries.
func (p *Packer) Pack(ctx context.Context, variants []Variant) ([]Artifact, error) {
	selected := p.Select(variants)
	if len(selected) == 0 {
		p.logger.Warn("no variants selected",
			log.Str("substrate", p.substrate),
			log.Int("candidates", len(variants)))
		return nil, nil
	}

	var artifacts []Artifact
	for _, v := range selected {
		artifact, err := p.packVariant(ctx, v)
		if err != nil {
			return artifacts, fmt.Errorf("failed to pack %s: %w", v.Name, err)
		}
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, nil
}

func (p *Packer) packVariant(ctx context.Context, v Variant) (*Artifact, error) {
	if v.Name == "" {
		return nil, fmt.Errorf("variant has no name")
	}
	p.logger.Info("building variant",
		log.Str("variant", v.Name),
		log.Str("path", v.Path))

	if err := p.runner.Run(ctx, v.Path, p.tool, "pack"); err != nil {
		return nil, err
	}

	produced, err := filepath.Glob(filepath.Join(v.Path, "*.charm"))
	if err != nil {
		return nil, err
	}
	if len(produced) == 0 {
		return nil, fmt.Errorf("build produced no charm archive in %s", v.Path)
	}
	if len(produced) > 1 {
		return nil, fmt.Errorf("build produced %d charm archives in %s, expected one", len(produced), v.Path)
	}

	target := filepath.Join(p.outputDir, v.Name+".charm")
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.Rename(produced[0], target); err != nil {
		return nil, fmt.Errorf("failed to rename artifact: %w", err)
	}
	p.logger.Info("built artifact",
		log.Str("variant", v.Name),
		log.Str("artifact", target))
	return &Artifact{Variant: v.Name, Path: target}, nil
}
