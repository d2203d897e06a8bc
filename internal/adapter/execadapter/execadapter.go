package execadapter

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/jgivc/harvestoverview/internal/service/cycle"
)

const (
	EnvURI      = "HARVEST_URI"
	EnvMode     = "HARVEST_MODE"
	EnvFrom     = "HARVEST_FROM"
	EnvScenario = "HARVEST_SCENARIO"
	EnvRetry    = "HARVEST_RETRY"
	EnvRunID    = "HARVEST_RUN_ID"

	keyCount     = "count"
	keyIncrement = "increment"
)

// commandHarvester runs an external harvest command once per endpoint. The
// job is passed in HARVEST_* variables. A zero exit status is a successful
// attempt; "count=N" and "increment=N" lines on stdout report the records
// processed.
type commandHarvester struct {
	name string
	args []string
	log  *slog.Logger
}

func NewCommandHarvester(command []string, log *slog.Logger) (*commandHarvester, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("harvest command is empty")
	}

	return &commandHarvester{
		name: command[0],
		args: command[1:],
		log:  log.With(slog.String("item", "CommandHarvester"), slog.String("command", command[0])),
	}, nil
}

func (h *commandHarvester) Harvest(ctx context.Context, job cycle.Job) (cycle.Result, error) {
	cmd := exec.CommandContext(ctx, h.name, h.args...)
	cmd.Env = append(os.Environ(), jobEnv(job)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	res, err := parseResult(stdout.Bytes())
	if err != nil {
		h.log.Warn("Cannot parse harvest output", slog.String("uri", job.URI), slog.Any("error", err))
	}

	if runErr != nil {
		return res, fmt.Errorf("harvest command failed: %w: %s", runErr, strings.TrimSpace(stderr.String()))
	}

	res.Success = true

	return res, nil
}

func jobEnv(job cycle.Job) []string {
	env := []string{
		EnvURI + "=" + job.URI,
		EnvMode + "=" + job.Plan.Mode.String(),
		EnvScenario + "=" + job.Scenario,
		EnvRetry + "=" + strconv.FormatBool(job.Retry),
		EnvRunID + "=" + job.RunID,
	}

	if job.Plan.From != nil {
		env = append(env, EnvFrom+"="+job.Plan.From.String())
	}

	return env
}

func parseResult(out []byte) (cycle.Result, error) {
	var res cycle.Result

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}

		switch key {
		case keyCount, keyIncrement:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 {
				return res, fmt.Errorf("bad %s value %q", key, value)
			}

			if key == keyCount {
				res.Count = n
			} else {
				res.Increment = n
			}
		}
	}

	return res, sc.Err()
}
