package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hinc/config"
	"hinc/includer"
	"hinc/state"
)

// Run is the action of the "build" subcommand: resolve every page document
// under the source directory and write the results under the destination.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	src, dst, err := sourceAndDestination(cmd, &env.Cfg.Build)
	if err != nil {
		return err
	}
	env.Overwrite = cmd.Bool("overwrite")
	if d := cmd.String("data"); d != "" {
		env.Cfg.Build.DataPath = d
	}

	id := uuid.New()
	log.Info("Build starting",
		zap.String("source", src), zap.String("destination", dst), zap.String("build_id", id.String()))
	defer func(start time.Time) {
		log.Info("Build completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	b, err := newBuilder(env, src, dst, log)
	if err != nil {
		return err
	}
	return b.run(ctx)
}

func sourceAndDestination(cmd *cli.Command, cfg *config.BuildConfig) (string, string, error) {
	src := cmd.Args().Get(0)
	if src == "" {
		src = cfg.SourceDir
	}
	if src == "" {
		return "", "", errors.New("no source directory has been specified")
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return "", "", err
	}

	dst := cmd.Args().Get(1)
	if dst == "" {
		dst = cfg.OutputDir
	}
	if dst == "" {
		if dst, err = os.Getwd(); err != nil {
			return "", "", fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return "", "", err
	}
	return src, dst, nil
}

// builder owns everything one build invocation needs: the engine with its
// exclusive fragment registry, the data tree and the output name template.
type builder struct {
	env  *state.LocalEnv
	src  string
	dst  string
	data cty.Value
	tmpl *template.Template
	eng  *includer.Engine
	log  *zap.Logger
}

func newBuilder(env *state.LocalEnv, src, dst string, log *zap.Logger) (*builder, error) {
	cfg := &env.Cfg.Build

	data, err := loadData(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load data tree: %w", err)
	}

	tmpl, err := parseOutputNameTemplate(cfg.OutputNameTemplate)
	if err != nil {
		return nil, fmt.Errorf("unable to parse output name template: %w", err)
	}

	return &builder{
		env:  env,
		src:  src,
		dst:  dst,
		data: data,
		tmpl: tmpl,
		eng:  includer.New(engineOptions(cfg, src, log)),
		log:  log,
	}, nil
}

func engineOptions(cfg *config.BuildConfig, src string, log *zap.Logger) includer.Options {
	return includer.Options{
		TagKeyword:        cfg.TagKeyword,
		FilePathAttribute: cfg.FilePathAttribute,
		JSONPathAttribute: cfg.JSONPathAttribute,
		IterationLimit:    cfg.IterationLimit,
		StrictCycles:      cfg.StrictCycles,
		Markers:           markers(cfg),
		Loader:            fragmentLoader(src),
		Capabilities:      defaultCapabilities(),
		Log:               log,
	}
}

func markers(cfg *config.BuildConfig) includer.Markers {
	m := includer.Markers{}
	for _, r := range cfg.Markers.Insert {
		m.Insert = r
		break
	}
	for _, r := range cfg.Markers.Wrap {
		m.Wrap = r
		break
	}
	return m
}

// run walks the source tree and processes every page document. Fragment
// files (insert/wrap marked names) are only pulled in on demand through the
// registry. Failures are per-document, the walk continues.
func (b *builder) run(ctx context.Context) (err error) {
	// the registry belongs to this build only
	defer b.eng.Registry().Reset()

	count := 0
	defer func() {
		if err == nil && count == 0 {
			b.log.Debug("Nothing to process", zap.String("dir", b.src))
		}
	}()

	werr := filepath.Walk(b.src, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			b.log.Warn("Skipping path", zap.String("path", path), zap.Error(walkErr))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(b.src, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if c := b.eng.Registry().Categorize(rel); c != includer.CategoryPage {
			b.log.Debug("Skipping fragment file", zap.String("file", rel), zap.Stringer("category", c))
			return nil
		}

		count++
		if perr := b.processPage(ctx, rel); perr != nil {
			b.log.Error("Unable to process document", zap.String("file", rel), zap.Error(perr))
			err = multierr.Append(err, fmt.Errorf("%s: %w", rel, perr))
		}
		return nil
	})
	return multierr.Append(err, werr)
}

// processPage resolves one page document and writes the output.
func (b *builder) processPage(ctx context.Context, rel string) error {
	raw, err := os.ReadFile(filepath.Join(b.src, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}

	b.log.Info("Resolving document", zap.String("from", rel))
	res, err := b.eng.Resolve(ctx, rel, string(raw), b.data)
	if err != nil {
		return err
	}
	for _, c := range res.Conditions {
		b.log.Warn("Resolution condition", zap.String("condition", c.String()))
	}

	outName, err := renderOutputName(b.tmpl, rel)
	if err != nil {
		return fmt.Errorf("unable to render output name: %w", err)
	}
	outPath := filepath.Join(b.dst, filepath.FromSlash(outName))

	if _, err := os.Stat(outPath); err == nil {
		if !b.env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outPath)
		}
		b.log.Warn("Overwriting existing file", zap.String("file", outPath))
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(res.Text), 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	// store resolution result for debugging
	if b.env.Rpt != nil {
		b.env.Rpt.StoreData("resolved/"+strings.ReplaceAll(rel, "/", "_"), []byte(res.Text))
		if len(res.Conditions) > 0 {
			b.env.Rpt.StoreData("conditions/"+strings.ReplaceAll(rel, "/", "_"), []byte(conditionsDump(res.Conditions)))
		}
	}

	b.log.Info("Document resolved", zap.String("to", outPath), zap.Int("conditions", len(res.Conditions)))
	return nil
}

func conditionsDump(cs includer.Conditions) string {
	var sb strings.Builder
	for _, c := range cs {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
