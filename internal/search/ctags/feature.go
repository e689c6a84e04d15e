package ctags

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	symerrors "symfind/internal/errors"
)

// DetectJSONFeature runs `bin --list-features` and reports whether json is
// among the listed features.
func DetectJSONFeature(ctx context.Context, bin string) (bool, error) {
	cmd := exec.CommandContext(ctx, bin, "--list-features")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return false, fmt.Errorf("%w: %s --list-features: %v", symerrors.ErrSpawnFailed, bin, err)
	}
	for _, line := range strings.Split(stdout.String(), "\n") {
		if strings.HasPrefix(line, "json") {
			return true, nil
		}
	}
	return false, nil
}

type featureProbe struct {
	once sync.Once
	json bool
}

// probes memoises DetectJSONFeature per executable.
var probes sync.Map

// EnsureJSONSupport fails with ErrFeatureMissing unless bin was built with
// JSON output. The probe runs once per executable for the process lifetime;
// a probe that fails to run counts as missing support. The probe ignores
// cancellation of ctx, so its memoised result never depends on the caller.
func EnsureJSONSupport(ctx context.Context, bin string) error {
	v, _ := probes.LoadOrStore(bin, &featureProbe{})
	probe := v.(*featureProbe)
	probe.once.Do(func() {
		probe.json, _ = DetectJSONFeature(context.WithoutCancel(ctx), bin)
	})
	if !probe.json {
		return fmt.Errorf("%w: %s has no +json feature", symerrors.ErrFeatureMissing, bin)
	}
	return nil
}
