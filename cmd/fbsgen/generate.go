package main

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fbsgen/internal/analyze"
	"fbsgen/internal/common"
	"fbsgen/internal/config"
	"fbsgen/internal/descriptor"
	"fbsgen/internal/manifest"
	"fbsgen/internal/schema"
	"fbsgen/internal/typemodel"
)

// generator runs the load, derive and render pipeline for one configuration.
type generator struct {
	cfg *config.Config
	log *zap.Logger
}

func newGenerator(cfg *config.Config, log *zap.Logger) *generator {
	return &generator{cfg: cfg, log: log}
}

// target is one schema file to render.
type target struct {
	filename string
	ids      []descriptor.TypeID
	root     string
}

// loadSet runs the configured front-ends concurrently and merges their
// descriptors into one validated set.
func (g *generator) loadSet(ctx context.Context) (*descriptor.Set, error) {
	var pkgSet, manSet *descriptor.Set

	eg, _ := errgroup.WithContext(ctx)

	if len(g.cfg.Packages) > 0 {
		eg.Go(func() error {
			a := analyze.NewAnalyzer(analyze.WithLogger(g.log.Named("analyze")))

			set, err := a.LoadPackages(g.cfg.Packages...)
			if err != nil {
				return err
			}

			pkgSet = set

			return nil
		})
	}

	if g.cfg.Manifest != "" {
		eg.Go(func() error {
			set, err := g.loadManifest()
			if err != nil {
				return err
			}

			manSet = set

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	set := descriptor.NewSet()

	for _, s := range []*descriptor.Set{pkgSet, manSet} {
		if s == nil {
			continue
		}

		if err := set.Merge(s); err != nil {
			return nil, err
		}
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}

	return set, nil
}

func (g *generator) loadManifest() (*descriptor.Set, error) {
	m, err := manifest.LoadFile(g.cfg.Manifest)
	if err != nil {
		return nil, err
	}

	report := m.Validate()
	for _, d := range report.Warnings() {
		g.log.Warn("manifest", zap.String("file", g.cfg.Manifest), zap.String("diagnostic", d.String()))
	}

	for _, d := range report.Notes() {
		g.log.Debug("manifest", zap.String("file", g.cfg.Manifest), zap.String("diagnostic", d.String()))
	}

	if err := report.Err(); err != nil {
		return nil, errors.Wrapf(err, "invalid manifest %s", g.cfg.Manifest)
	}

	return m.DescriptorSet()
}

// selected resolves the configured type names, or returns every declared
// type when none are named.
func (g *generator) selected(set *descriptor.Set) ([]descriptor.TypeID, error) {
	if len(g.cfg.Types) == 0 {
		return set.IDs(), nil
	}

	ids := make([]descriptor.TypeID, 0, len(g.cfg.Types))

	for _, name := range g.cfg.Types {
		id, err := set.Lookup(name)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// targets splits ids into files. With an output directory every type gets
// its own self-contained file; otherwise all go into one. Two types whose
// names map to the same file name are an error.
func (g *generator) targets(ids []descriptor.TypeID) ([]target, error) {
	if g.cfg.OutputDir == "" {
		return []target{{filename: g.cfg.Output, ids: ids, root: g.cfg.RootType}}, nil
	}

	out := make([]target, 0, len(ids))
	owners := make(map[string]descriptor.TypeID, len(ids))

	for _, id := range ids {
		filename := common.ToSnakeCase(id.Name) + ".fbs"
		if prev, dup := owners[filename]; dup {
			return nil, errors.WithHint(
				errors.Wrapf(typemodel.ErrInvalidConfiguration,
					"types %s and %s both render to %s", prev, id, filename),
				"select one of them with --types or render into a single --output file")
		}

		owners[filename] = id

		t := target{filename: filename, ids: []descriptor.TypeID{id}}
		if id.Name == g.cfg.RootType {
			t.root = g.cfg.RootType
		}

		out = append(out, t)
	}

	return out, nil
}

// generate loads, derives and renders every target. Files are rendered
// concurrently against one registry; the result keeps target order.
func (g *generator) generate(ctx context.Context) ([]schema.GeneratedFile, *typemodel.Registry, error) {
	set, err := g.loadSet(ctx)
	if err != nil {
		return nil, nil, err
	}

	ids, err := g.selected(set)
	if err != nil {
		return nil, nil, err
	}

	reg := typemodel.NewRegistry(set, typemodel.WithLogger(g.log.Named("typemodel")))
	targets, err := g.targets(ids)
	if err != nil {
		return nil, nil, err
	}

	files := make([]schema.GeneratedFile, len(targets))

	var opts []schema.WriterOption
	if g.cfg.CombineAttributes {
		opts = append(opts, schema.CombineAttributes())
	}

	eg, egCtx := errgroup.WithContext(ctx)

	for i, t := range targets {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			f := &schema.File{
				Namespace:     g.cfg.Namespace,
				RootType:      t.root,
				Includes:      g.cfg.Includes,
				WriterOptions: opts,
			}

			var buf bytes.Buffer
			if err := f.Write(&buf, reg, t.ids...); err != nil {
				return errors.Wrapf(err, "rendering %s", displayName(t.filename))
			}

			files[i] = schema.GeneratedFile{Filename: t.filename, Content: buf.Bytes()}

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	g.log.Debug("rendered schema", zap.Int("files", len(files)), zap.Int("types", len(ids)))

	return files, reg, nil
}

// path returns where a generated file lives on disk; empty means stdout.
func (g *generator) path(f schema.GeneratedFile) string {
	if g.cfg.OutputDir != "" {
		return filepath.Join(g.cfg.OutputDir, f.Filename)
	}

	return f.Filename
}

func displayName(filename string) string {
	if filename == "" {
		return "<stdout>"
	}

	return filename
}
