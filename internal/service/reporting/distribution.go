package reporting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/allocation"
	"github.com/anilytics/agriwarehouse/internal/domain/models"
	"github.com/anilytics/agriwarehouse/pkg/clients/advice"
)

// DistributionRecommendations plans the distribution of every stored batch.
// The rule-based plan is always computed; an advisor's plan replaces it only
// when the advisor answers in time with a usable plan.
func (s *Service) DistributionRecommendations(ctx context.Context) (models.DistributionResponse, error) {
	stored, err := s.store.ListByStatus(ctx, models.StatusInStorage)
	if err != nil {
		return models.DistributionResponse{}, fmt.Errorf("load stored batches: %w", err)
	}

	channels := s.settings.Channels.Clone()
	candidates := make([]allocation.Candidate, 0, len(stored))
	for i, b := range stored {
		assessment := s.assess(b)
		stored[i].SpoilageRisk = assessment.Risk
		candidates = append(candidates, allocation.FromBatch(b, assessment.Risk))
	}

	result, err := s.allocator.Allocate(candidates, channels)
	if err != nil {
		return models.DistributionResponse{}, fmt.Errorf("allocate batches: %w", err)
	}
	if len(result.Dropped) > 0 {
		s.logger.Warn("batches left out of allocation", zap.Int64s("batch_ids", result.Dropped))
	}

	rulesPlan := result.Plan(s.now())
	plan := rulesPlan
	if s.advisor != nil && len(stored) > 0 {
		aiPlan, err := s.consultAdvisor(ctx, advice.Request{Batches: stored, Channels: channels.Clone()})
		if err != nil {
			s.logger.Warn("ai recommendation failed, using rule-based plan",
				zap.String("provider", s.advisor.Name()),
				zap.Error(err),
			)
		} else {
			plan = aiPlan
		}
	}

	resp := models.DistributionResponse{
		Batches:    stored,
		DemandData: channels,
		Plan:       plan,
		ReportID:   uuid.NewString(),
	}
	s.archivePlan(ctx, resp, rulesPlan)
	return resp, nil
}

func (s *Service) consultAdvisor(ctx context.Context, req advice.Request) (plan models.DistributionPlan, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.AITimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			plan, err = models.DistributionPlan{}, fmt.Errorf("advisor panic: %v", r)
		}
	}()

	res, err := s.advisor.RecommendDistribution(ctx, req)
	if err != nil {
		return models.DistributionPlan{}, err
	}
	if res.Recommendations == nil {
		return models.DistributionPlan{}, advice.ErrInvalidResponse
	}

	return models.DistributionPlan{
		Source:          models.PlanSourceAI + ":" + s.advisor.Name(),
		Recommendations: res.Recommendations,
		TotalRevenue:    res.TotalRevenue,
		Summary:         res.Summary,
		GeneratedAt:     s.now(),
	}, nil
}

func (s *Service) archivePlan(ctx context.Context, resp models.DistributionResponse, rulesPlan models.DistributionPlan) {
	if s.archive == nil {
		return
	}

	report := models.DistributionReport{
		ID:         resp.ReportID,
		Plan:       resp.Plan,
		Channels:   resp.DemandData,
		BatchCount: len(resp.Batches),
		CreatedAt:  s.now(),
	}
	for _, b := range resp.Batches {
		report.TotalKg += b.QuantityKg
	}
	if resp.Plan.Source != models.PlanSourceRules {
		report.RulesPlan = &rulesPlan
	}

	if err := s.archive.SaveDistributionReport(ctx, report); err != nil {
		s.logger.Error("failed to archive distribution plan", zap.String("report_id", report.ID), zap.Error(err))
	}
}

// DistributionHistory lists archived plans, newest first.
func (s *Service) DistributionHistory(ctx context.Context, limit int) ([]models.DistributionReport, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 {
		limit = defaultHistoryEntries
	}
	return s.archive.ListDistributionReports(ctx, limit)
}

// DistributionReport loads one archived plan.
func (s *Service) DistributionReport(ctx context.Context, id string) (models.DistributionReport, error) {
	if s.archive == nil {
		return models.DistributionReport{}, ErrArchiveDisabled
	}
	return s.archive.GetDistributionReport(ctx, id)
}
