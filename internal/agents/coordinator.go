package agents

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"medteam/internal/domain/role"
	"medteam/pkg/errors"
	"medteam/pkg/logger"
)

// Coordinator fans the report out to independent role workers and joins on all of them.
type Coordinator struct {
	worker   *Worker
	poolSize int
	log      *logger.Logger
}

// NewCoordinator creates a coordinator. poolSize is raised at run time to the
// number of roles so every role runs in parallel.
func NewCoordinator(worker *Worker, poolSize int) (*Coordinator, error) {
	if worker == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "worker is required")
	}

	return &Coordinator{
		worker:   worker,
		poolSize: poolSize,
		log:      logger.Component("coordinator"),
	}, nil
}

// Run executes one worker per role and blocks until all have finished.
// The mapping holds exactly one entry per distinct role, failures included;
// Run itself never fails.
func (c *Coordinator) Run(ctx context.Context, roles []role.Role, report string) ResultMapping {
	unique := dedupe(roles)
	if len(unique) == 0 {
		return ResultMapping{}
	}

	limit := c.poolSize
	if limit < len(unique) {
		limit = len(unique)
	}

	c.log.Infof("Starting parallel execution of %d roles (pool size %d)", len(unique), limit)
	start := time.Now()

	results := make(chan Result, len(unique))
	var g errgroup.Group
	g.SetLimit(limit)

	for _, r := range unique {
		g.Go(func() error {
			c.log.Infof("→ Running role: %s", r)
			results <- c.runOne(ctx, r, report)
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	mapping := make(ResultMapping, len(unique))
	for res := range results {
		mapping[res.Role] = res
	}

	c.log.Infof("All role responses collected: %d/%d succeeded (duration: %s)",
		mapping.Succeeded(), len(unique), time.Since(start).Round(time.Millisecond))

	return mapping
}

func (c *Coordinator) runOne(ctx context.Context, r role.Role, report string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			c.log.Errorf("Role %s panicked: %v", r, p)
			res = Result{Role: r, Model: c.worker.opts.Model, Err: errors.Wrapf(errors.ErrInference, "worker panic: %v", p)}
		}
	}()

	return c.worker.Execute(ctx, r, map[string]string{role.InputMedicalReport: report})
}

func dedupe(roles []role.Role) []role.Role {
	seen := make(map[role.Role]struct{}, len(roles))
	out := make([]role.Role, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
