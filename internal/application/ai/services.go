package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/bryanwahyu/automaton-sapaudit/internal/application"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/ai"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/narrative"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/report"
	"github.com/bryanwahyu/automaton-sapaudit/internal/infra/ai/prompt"
)

// TopRiskUsers is how many users the digest carries
const TopRiskUsers = 10

type Service struct {
	client ai.Client
	repo   narrative.Repository
	clock  application.Clock
}

func NewService(client ai.Client, repo narrative.Repository, clock application.Clock) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Service{client: client, repo: repo, clock: clock}
}

// Narrate writes and stores a narrative for a stored access report
func (s *Service) Narrate(ctx context.Context, rep *report.AccessReport) (*narrative.Narrative, error) {
	digest, err := prompt.NewDigest(rep, TopRiskUsers).JSON()
	if err != nil {
		return nil, fmt.Errorf("build digest: %w", err)
	}
	content, err := s.client.Narrate(ctx, digest)
	if err != nil {
		return nil, err
	}
	n := &narrative.Narrative{
		ID:        narrative.NarrativeID(uuid.New().String()),
		ReportID:  rep.ID,
		Provider:  s.client.Provider(),
		Content:   content,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Save(ctx, n); err != nil {
		return nil, fmt.Errorf("save narrative: %w", err)
	}
	log.Printf("narrative report=%s provider=%s id=%s", rep.ID, n.Provider, n.ID)
	return n, nil
}

// Latest returns the newest narrative of a report, nil when none exists
func (s *Service) Latest(ctx context.Context, reportID string) (*narrative.Narrative, error) {
	return s.repo.LatestByReport(ctx, reportID)
}

// List pages through all narratives
func (s *Service) List(ctx context.Context, page, pageSize int) ([]*narrative.Narrative, error) {
	return s.repo.Paginate(ctx, page, pageSize)
}
