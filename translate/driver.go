package translate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minios-linux/docloc/doctree"
	"github.com/minios-linux/docloc/format"
	"github.com/minios-linux/docloc/placeholder"
)

// Translator translates one string. *Client implements it.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Cache records which strings of an output were translated from which
// source text, so a rerun can take them from the existing output.
// *lockfile.LockFile implements it.
type Cache interface {
	TargetKey(outputPath string) string
	IsChanged(target, key, source string) bool
	Update(target, key, source string)
	Forget(target, key string)
	Clean(target string, keys []string)
	Save() error
}

// ---------------------------------------------------------------------------
// Job and results
// ---------------------------------------------------------------------------

// Job describes one document translation.
type Job struct {
	InputPath  string
	OutputPath string
	// Format names the adapter; empty detects it from InputPath.
	Format     string
	SourceLang string
	TargetLang string
}

// JobState is the phase of a job.
type JobState int

const (
	JobIdle JobState = iota
	JobExtracting
	JobTranslating
	JobFinalizing
	JobDone
)

func (s JobState) String() string {
	switch s {
	case JobIdle:
		return "idle"
	case JobExtracting:
		return "extracting"
	case JobTranslating:
		return "translating"
	case JobFinalizing:
		return "finalizing"
	case JobDone:
		return "done"
	}
	return fmt.Sprintf("JobState(%d)", int(s))
}

// UnitStatus is the state of one translation unit.
type UnitStatus int

const (
	StatusPending UnitStatus = iota
	StatusProtecting
	StatusSending
	StatusRestoring
	// StatusApplied: the translation was written into the tree.
	StatusApplied
	// StatusSkipped: nothing to translate, the text passes through.
	StatusSkipped
	// StatusFailed: the service call failed, the source text is kept.
	StatusFailed
	// StatusReused: the translation was taken from the previous output.
	StatusReused
)

func (s UnitStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProtecting:
		return "protecting"
	case StatusSending:
		return "sending"
	case StatusRestoring:
		return "restoring"
	case StatusApplied:
		return "applied"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusReused:
		return "reused"
	}
	return fmt.Sprintf("UnitStatus(%d)", int(s))
}

// UnitResult records the outcome of one unit.
type UnitResult struct {
	Index  int
	Path   string
	Source string
	// Result is the text now held by the leaf.
	Result string
	Status UnitStatus
	Err    error
}

// Report summarises a finished job.
type Report struct {
	Format     string
	OutputPath string
	Units      []UnitResult
	Applied    int
	Skipped    int
	Failed     int
	Reused     int
}

// Total returns the number of extracted units.
func (r *Report) Total() int { return len(r.Units) }

func (r *Report) add(u UnitResult) {
	r.Units = append(r.Units, u)
	switch u.Status {
	case StatusApplied:
		r.Applied++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	case StatusReused:
		r.Reused++
	}
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options carries the reporting callbacks. None of them affect control flow.
type Options struct {
	// OnProgress is called after each unit with the number of units done.
	OnProgress func(done, total int)
	// OnState is called when the job enters a new phase.
	OnState func(JobState)
	// OnUnit is called with each finished unit.
	OnUnit func(UnitResult)
	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnWarn emits non-fatal unit failures.
	OnWarn func(format string, args ...any)
	// Verbose logs every unit state transition through OnLog.
	Verbose bool
	// Cache, when set, lets Run reuse strings of an existing output whose
	// source is unchanged. It is saved after every unit.
	Cache Cache
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) debug(format string, args ...any) {
	if o.Verbose {
		o.log(format, args...)
	}
}

func (o *Options) state(s JobState) {
	if o.OnState != nil {
		o.OnState(s)
	}
	o.debug("job: %s", s)
}

func (o *Options) warn(format string, args ...any) {
	if o.OnWarn != nil {
		o.OnWarn(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// ---------------------------------------------------------------------------
// Driver
// ---------------------------------------------------------------------------

// Driver translates documents unit by unit, rewriting the output after every
// unit so it is always a complete, valid document.
type Driver struct {
	translator Translator
	opts       Options
}

// NewDriver returns a driver that sends units to t.
func NewDriver(t Translator, opts Options) *Driver {
	return &Driver{translator: t, opts: opts}
}

type prepared struct {
	adapter format.Adapter
	raw     []byte
	doc     *doctree.Document
	units   []doctree.Unit
}

func (d *Driver) prepare(job Job) (*prepared, error) {
	adapter, err := format.Resolve(job.Format, job.InputPath)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(job.InputPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", job.InputPath, err)
	}
	doc, err := adapter.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.InputPath, err)
	}
	return &prepared{adapter: adapter, raw: raw, doc: doc, units: doctree.Extract(doc.Root)}, nil
}

// Plan parses the input and classifies its units without calling the
// service or writing anything. Units are either pending or skipped.
func (d *Driver) Plan(job Job) (*Report, error) {
	p, err := d.prepare(job)
	if err != nil {
		return nil, err
	}
	rep := &Report{Format: p.adapter.Name(), OutputPath: job.OutputPath}
	for i, u := range p.units {
		r := UnitResult{Index: i, Path: u.Path(), Source: u.Text, Result: u.Text, Status: StatusPending}
		if !placeholder.IsTranslatable(u.Text) {
			r.Status = StatusSkipped
		}
		rep.add(r)
	}
	return rep, nil
}

// Run translates the job. Parse errors and output write failures are fatal;
// a failed unit is recorded, reported through OnWarn and keeps its source
// text, and the job carries on.
func (d *Driver) Run(ctx context.Context, job Job) (*Report, error) {
	d.opts.state(JobExtracting)
	p, err := d.prepare(job)
	if err != nil {
		return nil, err
	}
	rep := &Report{Format: p.adapter.Name(), OutputPath: job.OutputPath}
	total := len(p.units)
	d.opts.log("Extracted %d strings from %s (%s)", total, job.InputPath, rep.Format)

	c := d.newCacheRun(p.adapter, job)

	if total == 0 {
		// Nothing to translate: the output is the input.
		d.opts.state(JobFinalizing)
		if err := writeFileAtomic(job.OutputPath, p.raw); err != nil {
			return rep, err
		}
		if err := c.finish(nil); err != nil {
			return rep, err
		}
		d.opts.state(JobDone)
		return rep, nil
	}

	d.opts.state(JobTranslating)
	for i, u := range p.units {
		res := d.translateUnit(ctx, i, u, job, c)
		rep.add(res)

		data, err := p.adapter.Serialize(p.doc)
		if err != nil {
			return rep, fmt.Errorf("serializing %s: %w", rep.Format, err)
		}
		if err := writeFileAtomic(job.OutputPath, data); err != nil {
			return rep, err
		}
		if err := c.record(res); err != nil {
			return rep, err
		}

		if d.opts.OnUnit != nil {
			d.opts.OnUnit(res)
		}
		if d.opts.OnProgress != nil {
			d.opts.OnProgress(i+1, total)
		}
	}
	d.opts.state(JobFinalizing)
	if err := c.finish(p.units); err != nil {
		return rep, err
	}
	d.opts.log("Saved %s (%d translated, %d reused, %d skipped, %d failed)", job.OutputPath, rep.Applied, rep.Reused, rep.Skipped, rep.Failed)
	d.opts.state(JobDone)
	return rep, nil
}

func (d *Driver) translateUnit(ctx context.Context, i int, u doctree.Unit, job Job, c *cacheRun) UnitResult {
	res := UnitResult{Index: i, Path: u.Path(), Source: u.Text, Result: u.Text, Status: StatusPending}
	step := func(s UnitStatus) {
		res.Status = s
		d.opts.debug("[%d] %s: %s", i+1, res.Path, s)
	}

	step(StatusProtecting)
	if !placeholder.IsTranslatable(u.Text) {
		step(StatusSkipped)
		return res
	}
	if prev, ok := c.reusable(res.Path, u.Text); ok {
		if err := u.Ref.Set(prev); err == nil {
			res.Result = prev
			step(StatusReused)
			return res
		}
	}
	masked, m := placeholder.Protect(u.Text)

	step(StatusSending)
	out, err := d.translator.Translate(ctx, masked, job.SourceLang, job.TargetLang)
	if err != nil {
		res.Err = err
		step(StatusFailed)
		d.opts.warn("Could not translate %q (%s): %v", u.Text, Kind(err), err)
		return res
	}

	step(StatusRestoring)
	restored := placeholder.Restore(out, m)
	if err := u.Ref.Set(restored); err != nil {
		// The tree is frozen after parse, so this only fires on an
		// adapter bug.
		res.Err = err
		step(StatusFailed)
		d.opts.warn("Could not apply translation for %s: %v", res.Path, err)
		return res
	}
	res.Result = restored
	step(StatusApplied)
	return res
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

// cacheRun is the cache state of one job. A nil *cacheRun is a no-op.
type cacheRun struct {
	cache  Cache
	target string
	// previous maps unit paths to the text of the output before the job.
	previous map[string]string
}

// cacheTarget keys cache entries by output file and target language, so a
// rerun into the same file with another language translates everything.
func cacheTarget(cache Cache, job Job) string {
	return cache.TargetKey(job.OutputPath) + "@" + strings.ToUpper(job.TargetLang)
}

func (d *Driver) newCacheRun(adapter format.Adapter, job Job) *cacheRun {
	if d.opts.Cache == nil {
		return nil
	}
	outputPath := job.OutputPath
	c := &cacheRun{cache: d.opts.Cache, target: cacheTarget(d.opts.Cache, job)}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return c
	}
	doc, err := adapter.Parse(data)
	if err != nil {
		d.opts.warn("Ignoring existing output %s: %v", outputPath, err)
		return c
	}
	units := doctree.Extract(doc.Root)
	c.previous = make(map[string]string, len(units))
	for _, u := range units {
		c.previous[u.Path()] = u.Text
	}
	d.opts.debug("Found %d strings in existing output %s", len(units), outputPath)
	return c
}

// reusable returns the previous translation of path if its source is the
// one it was translated from.
func (c *cacheRun) reusable(path, source string) (string, bool) {
	if c == nil {
		return "", false
	}
	prev, ok := c.previous[path]
	if !ok || c.cache.IsChanged(c.target, path, source) {
		return "", false
	}
	return prev, true
}

func (c *cacheRun) record(res UnitResult) error {
	if c == nil {
		return nil
	}
	switch res.Status {
	case StatusApplied, StatusReused:
		c.cache.Update(c.target, res.Path, res.Source)
	default:
		c.cache.Forget(c.target, res.Path)
	}
	return c.cache.Save()
}

func (c *cacheRun) finish(units []doctree.Unit) error {
	if c == nil {
		return nil
	}
	keys := make([]string, len(units))
	for i, u := range units {
		keys[i] = u.Path()
	}
	c.cache.Clean(c.target, keys)
	return c.cache.Save()
}

// writeFileAtomic replaces path with data through a temporary file in the
// same directory, so readers never observe a half-written document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
