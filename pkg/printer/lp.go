package printer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tintypelabs/tintype/pkg/storage"
)

// runner abstracts the lp/lpstat invocations so dispatch logic is testable
// without a spooler.
type runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return out.String(), errBuf.String(), err
}

var jobIDPattern = regexp.MustCompile(`request id is (\S+)`)

// LPDispatcher submits through the lp command and checks target presence
// with lpstat. Each target interaction is bounded by Timeout; a hung spooler
// counts as a failed target and fallback proceeds.
type LPDispatcher struct {
	Primary   string
	Fallbacks []string
	Timeout   time.Duration

	root *storage.Root
	run  runner
}

// NewLPDispatcher builds a dispatcher whose submissions are restricted to
// files inside the given storage root.
func NewLPDispatcher(primary string, fallbacks []string, root *storage.Root, timeout time.Duration) *LPDispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LPDispatcher{
		Primary:   primary,
		Fallbacks: fallbacks,
		Timeout:   timeout,
		root:      root,
		run:       execRunner{},
	}
}

func (d *LPDispatcher) targets() []string {
	var out []string
	if d.Primary != "" {
		out = append(out, d.Primary)
	}
	for _, t := range d.Fallbacks {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Submit tries the primary target, then each fallback in order, and returns
// the first accepted job. The image path is re-validated against the storage
// root before any spooler interaction.
func (d *LPDispatcher) Submit(ctx context.Context, imagePath string, opts Options) (Job, error) {
	if d.root != nil {
		if err := d.root.Contains(imagePath); err != nil {
			return Job{}, err
		}
	}

	targets := d.targets()
	if len(targets) == 0 {
		return Job{}, &Error{Kind: KindNotFound, Detail: "no print targets configured"}
	}

	anyExisted := false
	var lastTarget, lastDetail string
	var lastErr error
	for _, target := range targets {
		exists, enabled, detail := d.queryTarget(ctx, target)
		if !exists {
			lastTarget, lastDetail = target, detail
			continue
		}
		anyExisted = true
		if !enabled {
			lastTarget, lastDetail = target, detail
			slog.Warn("print target disabled, trying next", "target", target)
			continue
		}

		id, detail, err := d.submitTo(ctx, target, imagePath, opts)
		if err == nil {
			if target != d.Primary {
				slog.Info("print dispatched to fallback target", "target", target, "primary", d.Primary)
			}
			return Job{ID: id, Target: target}, nil
		}
		lastTarget, lastDetail, lastErr = target, detail, err
		slog.Warn("print submission rejected, trying next", "target", target, "detail", detail)
	}

	if !anyExisted {
		return Job{}, &Error{Kind: KindNotFound, Target: lastTarget, Detail: lastDetail, Err: lastErr}
	}
	return Job{}, &Error{Kind: KindSubmissionFailed, Target: lastTarget, Detail: lastDetail, Err: lastErr}
}

// Available returns the first configured target that exists and is enabled.
func (d *LPDispatcher) Available(ctx context.Context) (string, error) {
	var lastDetail string
	for _, target := range d.targets() {
		exists, enabled, detail := d.queryTarget(ctx, target)
		if exists && enabled {
			return target, nil
		}
		lastDetail = detail
	}
	return "", &Error{Kind: KindNotFound, Detail: lastDetail}
}

// queryTarget asks lpstat whether the target exists and is enabled.
func (d *LPDispatcher) queryTarget(ctx context.Context, target string) (exists, enabled bool, detail string) {
	qctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	out, errOut, err := d.run.Run(qctx, "lpstat", "-p", target)
	if err != nil {
		// lpstat exits non-zero for unknown destinations.
		return false, false, strings.TrimSpace(out + errOut)
	}
	if strings.Contains(out, "disabled") {
		return true, false, strings.TrimSpace(out)
	}
	return true, true, ""
}

func (d *LPDispatcher) submitTo(ctx context.Context, target, imagePath string, opts Options) (id, detail string, err error) {
	sctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	args := d.buildArgs(target, imagePath, opts)
	out, errOut, err := d.run.Run(sctx, "lp", args...)
	if err != nil {
		return "", strings.TrimSpace(out + errOut), err
	}
	m := jobIDPattern.FindStringSubmatch(out)
	if m == nil {
		return "", strings.TrimSpace(out), fmt.Errorf("no job id in lp output")
	}
	return m[1], "", nil
}

// buildArgs renders the lp invocation. Options pass through verbatim; the
// dispatcher owns only target selection.
func (d *LPDispatcher) buildArgs(target, imagePath string, opts Options) []string {
	copies := opts.Copies
	if copies < 1 {
		copies = 1
	}
	args := []string{
		"-d", target,
		"-t", fmt.Sprintf("PhotoBooth-%d", time.Now().Unix()),
		"-n", strconv.Itoa(copies),
	}
	if opts.PaperSize != "" {
		args = append(args, "-o", "PageSize="+opts.PaperSize)
	}
	if opts.Resolution != "" {
		args = append(args, "-o", "Resolution="+opts.Resolution)
	}
	if opts.MediaType != "" {
		args = append(args, "-o", "media="+opts.MediaType)
	}
	if opts.Quality != "" {
		args = append(args, "-o", "print-quality="+opts.Quality)
	}
	if opts.Borderless {
		args = append(args, "-o", "Borderless=True")
	}
	// Deterministic ordering keeps logs and tests stable.
	keys := make([]string, 0, len(opts.Custom))
	for k := range opts.Custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-o", k+"="+opts.Custom[k])
	}
	return append(args, imagePath)
}
