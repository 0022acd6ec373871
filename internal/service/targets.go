package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"jfscan/internal/domain"
)

// ParseTarget decides how a raw scan target is ingested. Blank lines and
// "#" comments are skipped, as is anything with a "/" that is not a prefix.
func (s *ReconService) ParseTarget(raw string) (domain.TargetKind, string) {
	target := strings.TrimSpace(raw)

	switch {
	case target == "", strings.HasPrefix(target, "#"):
		return domain.TargetSkip, target
	case strings.Contains(target, "/"):
		if _, err := netip.ParsePrefix(target); err != nil {
			return domain.TargetSkip, target
		}
		return domain.TargetAddressRange, target
	case s.classify.Classify(target).Valid():
		return domain.TargetAddress, target
	default:
		return domain.TargetDomain, target
	}
}

// AddTarget ingests one raw target with the operation matching its kind
func (s *ReconService) AddTarget(ctx context.Context, raw string) error {
	kind, target := s.ParseTarget(raw)

	switch kind {
	case domain.TargetAddressRange:
		return s.AddAddressRange(ctx, target)
	case domain.TargetAddress:
		return s.AddAddress(ctx, target)
	case domain.TargetDomain:
		return s.AddDomain(ctx, target)
	default:
		if target != "" && !strings.HasPrefix(target, "#") {
			s.drop("target", target, "unrecognized target")
		}
		return nil
	}
}

// AddTargets ingests targets concurrently, bounded by the configured worker
// count. A failing target never stops the others; all storage errors are
// returned together.
func (s *ReconService) AddTargets(ctx context.Context, targets []string) error {
	start := time.Now()

	var (
		mu   sync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}

		g.Go(func() error {
			if err := s.AddTarget(ctx, target); err != nil {
				s.logger.WithTarget(target).Warnw("Failed to ingest target", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", target, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.LogDuration(ctx, "ingest_targets", start,
		"targets", len(targets),
		"workers", s.workers,
		"failed", len(errs),
	)

	return errors.Join(errs...)
}

// LoadTargets reads one target per line
func LoadTargets(r io.Reader) ([]string, error) {
	var targets []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}

	return targets, nil
}
