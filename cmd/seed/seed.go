package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/domain"
	"travelguide.io/guestbook/internal/pkg/logger"
	"travelguide.io/guestbook/internal/pkg/worker"
	"travelguide.io/guestbook/internal/usecase"
)

type submitter interface {
	Execute(ctx context.Context, in usecase.SubmitInput) (*usecase.SubmitOutput, error)
}

type approver interface {
	Transition(ctx context.Context, id string, target domain.ModerationState, notes *string, moderator domain.Identity) (*domain.Submission, error)
}

// Report summarizes a seed run. ByState counts the state each submission was
// created in, before any fixture approval.
type Report struct {
	Created  int
	Approved int
	ByState  map[domain.ModerationState]int
	Failures []error
}

func (r *Report) record(s *domain.Submission) {
	r.Created++
	r.ByState[s.ModerationState]++
}

// Seeder pushes fixture submissions through the same pipeline as the HTTP API.
// Entries are submitted concurrently, then comments once every parent exists.
type Seeder struct {
	submit   submitter
	approve  approver
	pool     *worker.Pool
	reviewer domain.Identity
	source   string

	mu     sync.Mutex
	report Report
}

// NewSeeder creates a seeder. reviewer approves entries marked approve.
func NewSeeder(submit submitter, approve approver, pool *worker.Pool, reviewer domain.Identity) *Seeder {
	return &Seeder{
		submit:   submit,
		approve:  approve,
		pool:     pool,
		reviewer: reviewer,
		source:   "seed",
	}
}

// Run seeds fx and returns what happened. Individual submission failures are
// collected in the report rather than aborting the run.
func (s *Seeder) Run(ctx context.Context, fx *Fixture) (*Report, error) {
	s.report = Report{ByState: make(map[domain.ModerationState]int)}

	parents := make(map[string]string, len(fx.Entries))
	err := s.fanOut(ctx, len(fx.Entries), func(ctx context.Context, i int) {
		e := fx.Entries[i]
		sub, err := s.submitOne(ctx, usecase.SubmitInput{
			Kind:           domain.KindEntry,
			Body:           e.Body,
			RelatedContext: e.Listing,
			Author:         e.Author.identity(),
		})
		if err != nil {
			s.fail(fmt.Errorf("entry %q: %w", e.Ref, err))
			return
		}
		if e.Approve && sub.ModerationState != domain.StateApproved {
			if _, err := s.approve.Transition(ctx, sub.ID, domain.StateApproved, nil, s.reviewer); err != nil {
				s.fail(fmt.Errorf("approve entry %q: %w", e.Ref, err))
			} else {
				s.mu.Lock()
				s.report.Approved++
				s.mu.Unlock()
			}
		}
		s.mu.Lock()
		parents[e.Ref] = sub.ID
		s.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	type pendingComment struct {
		ref string
		c   FixtureComment
	}
	var comments []pendingComment
	for _, e := range fx.Entries {
		if _, ok := parents[e.Ref]; !ok {
			continue
		}
		for _, c := range e.Comments {
			comments = append(comments, pendingComment{ref: e.Ref, c: c})
		}
	}

	err = s.fanOut(ctx, len(comments), func(ctx context.Context, i int) {
		pc := comments[i]
		_, err := s.submitOne(ctx, usecase.SubmitInput{
			Kind:           domain.KindComment,
			Body:           pc.c.Body,
			RelatedContext: parents[pc.ref],
			Author:         pc.c.Author.identity(),
		})
		if err != nil {
			s.fail(fmt.Errorf("comment on %q by %s: %w", pc.ref, pc.c.Author.ID, err))
		}
	})
	if err != nil {
		return nil, err
	}

	report := s.report
	return &report, nil
}

func (s *Seeder) submitOne(ctx context.Context, in usecase.SubmitInput) (*domain.Submission, error) {
	in.SourceAddress = s.source
	out, err := s.submit.Execute(ctx, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.report.record(out.Submission)
	s.mu.Unlock()
	logger.Debug("Seeded submission",
		zap.String("submission_id", out.Submission.ID),
		zap.String("kind", string(out.Submission.Kind)),
		zap.String("state", string(out.Submission.ModerationState)),
	)
	return out.Submission, nil
}

func (s *Seeder) fail(err error) {
	logger.Warn("Seed submission failed", zap.Error(err))
	s.mu.Lock()
	s.report.Failures = append(s.report.Failures, err)
	s.mu.Unlock()
}

// fanOut runs n tasks on the pool and waits for all of them.
// Tasks see ctx uncancelled by the pool so every accepted task reaches wg.Done.
func (s *Seeder) fanOut(ctx context.Context, n int, task func(ctx context.Context, i int)) error {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		err := s.pool.Submit(context.WithoutCancel(ctx), func(ctx context.Context) {
			defer wg.Done()
			task(ctx, i)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return fmt.Errorf("submit seed task: %w", err)
		}
	}
	wg.Wait()
	return nil
}
