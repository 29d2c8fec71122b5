package services

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/constants"
)

// Resolution is the outcome of mapping a platform label/attribute to a
// funnel/stage target.
type Resolution struct {
	Funnel *models.Funnel
	Stage  *models.Stage
	// Source records which step of the algorithm produced the target:
	// "exact", "similarity" or "autocreate".
	Source string
}

// MappingCandidate is one label/attribute extracted from an inbound
// event, to be resolved against the rule set.
type MappingCandidate struct {
	SourceType string
	Key        string
	Value      string
}

// MappingService resolves platform labels and attributes to funnel/
// stage targets using the priority-ordered rule set. Resolution order:
// exact rule match, name similarity, auto-create. The default
// first-funnel placement is applied by the caller when resolution
// yields nothing.
type MappingService struct {
	rules   ports.MappingRuleStore
	funnels ports.FunnelStore
	syncLog *SyncLogService
}

// NewMappingService creates a new MappingService
func NewMappingService(rules ports.MappingRuleStore, funnels ports.FunnelStore, syncLog *SyncLogService) *MappingService {
	return &MappingService{rules: rules, funnels: funnels, syncLog: syncLog}
}

// ResolveBest resolves a set of candidates and returns the first hit.
// Attribute-sourced candidates take precedence over label-sourced ones:
// attributes are structured key/value pairs while labels are free-form.
func (s *MappingService) ResolveBest(ctx context.Context, candidates []MappingCandidate) (*Resolution, error) {
	ordered := make([]MappingCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.SourceType == constants.MappingSourceAttribute {
			ordered = append(ordered, c)
		}
	}
	for _, c := range candidates {
		if c.SourceType != constants.MappingSourceAttribute {
			ordered = append(ordered, c)
		}
	}

	for _, c := range ordered {
		res, err := s.Resolve(ctx, c.SourceType, c.Key, c.Value)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, nil
}

// Resolve maps one label/attribute to a target. Returns (nil, nil)
// when nothing matched and auto-create did not apply.
func (s *MappingService) Resolve(ctx context.Context, sourceType, key, value string) (*Resolution, error) {
	effectiveKey := key
	effectiveValue := value
	if sourceType == constants.MappingSourceLabel {
		// Label values with a ':' separator carry the effective match key
		// after the first colon, e.g. "etapa:negociacao" -> "negociacao".
		effectiveKey = afterColon(key)
		effectiveValue = afterColon(value)
	}

	// 1. Exact rule match, priority ascending, value-specific rules
	// before wildcards at equal priority (store ordering contract).
	rules, err := s.rules.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.SourceType != sourceType || !rule.Valid() {
			continue
		}
		if rule.SourceKey != effectiveKey {
			continue
		}
		if rule.SourceValue != nil && *rule.SourceValue != effectiveValue {
			continue
		}
		return s.materialize(ctx, rule)
	}

	// 2. Similarity: case-insensitive substring match against known
	// funnel and stage names.
	if res, err := s.resolveBySimilarity(ctx, effectiveValue); err != nil || res != nil {
		return res, err
	}

	// 3. Auto-create a target when the value is long enough to be a
	// meaningful name. This is a side effect and is logged distinctly.
	// Length is counted in runes so accented labels are not inflated by
	// their UTF-8 byte width.
	if utf8.RuneCountInString(effectiveValue) >= constants.MappingAutoCreateMinLen {
		return s.autoCreate(ctx, sourceType, effectiveValue)
	}

	return nil, nil
}

// materialize turns a matched rule into concrete funnel/stage records
func (s *MappingService) materialize(ctx context.Context, rule models.MappingRule) (*Resolution, error) {
	var funnel *models.Funnel
	var stage *models.Stage
	var err error

	if rule.TargetFunnelName != nil {
		funnel, err = s.funnels.FindFunnelByName(ctx, *rule.TargetFunnelName)
		if err != nil {
			return nil, err
		}
	}
	if funnel == nil && rule.TargetStageName != nil {
		// Stage-only rule: locate the stage across funnels.
		stage, err = s.funnels.FindStageByName(ctx, "", *rule.TargetStageName)
		if err != nil {
			return nil, err
		}
		if stage != nil {
			funnel, err = s.funnels.GetFunnel(ctx, stage.FunnelID)
			if err != nil {
				return nil, err
			}
		}
	}
	if funnel == nil {
		// Rule names a funnel that no longer exists.
		log.Printf("⚠️ Mapping rule %s targets unknown funnel/stage, skipping", rule.ID)
		return nil, nil
	}

	if stage == nil && rule.TargetStageName != nil {
		stage, err = s.funnels.FindStageByName(ctx, funnel.ID, *rule.TargetStageName)
		if err != nil {
			return nil, err
		}
	}
	if stage == nil {
		stage, err = s.firstStage(ctx, funnel.ID)
		if err != nil || stage == nil {
			return nil, err
		}
	}

	return &Resolution{Funnel: funnel, Stage: stage, Source: "exact"}, nil
}

// resolveBySimilarity matches the value against funnel and stage names
func (s *MappingService) resolveBySimilarity(ctx context.Context, value string) (*Resolution, error) {
	if value == "" {
		return nil, nil
	}
	needle := strings.ToLower(value)

	funnels, err := s.funnels.ListFunnels(ctx)
	if err != nil {
		return nil, err
	}

	for i := range funnels {
		name := strings.ToLower(funnels[i].Name)
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			stage, err := s.firstStage(ctx, funnels[i].ID)
			if err != nil || stage == nil {
				return nil, err
			}
			return &Resolution{Funnel: &funnels[i], Stage: stage, Source: "similarity"}, nil
		}
	}

	for i := range funnels {
		stages, err := s.funnels.ListStages(ctx, funnels[i].ID)
		if err != nil {
			return nil, err
		}
		for j := range stages {
			name := strings.ToLower(stages[j].Name)
			if strings.Contains(name, needle) || strings.Contains(needle, name) {
				return &Resolution{Funnel: &funnels[i], Stage: &stages[j], Source: "similarity"}, nil
			}
		}
	}

	return nil, nil
}

// autoCreate synthesizes a new target named after the value: a funnel
// for label sources, a stage in the first funnel for attribute sources.
func (s *MappingService) autoCreate(ctx context.Context, sourceType, value string) (*Resolution, error) {
	started := time.Now()

	if sourceType == constants.MappingSourceAttribute {
		funnel, _, err := s.funnels.FirstPlacement(ctx)
		if err != nil {
			return nil, err
		}
		if funnel == nil {
			return nil, nil
		}
		stage := &models.Stage{FunnelID: funnel.ID, Name: value}
		if err := s.funnels.CreateStage(ctx, stage); err != nil {
			return nil, err
		}
		s.logAutoCreate(ctx, "stage "+value, started)
		return &Resolution{Funnel: funnel, Stage: stage, Source: "autocreate"}, nil
	}

	funnel := &models.Funnel{Name: value}
	if err := s.funnels.CreateFunnel(ctx, funnel); err != nil {
		return nil, err
	}
	stage := &models.Stage{FunnelID: funnel.ID, Name: constants.DefaultStageNames[0], Position: 1}
	if err := s.funnels.CreateStage(ctx, stage); err != nil {
		return nil, err
	}
	s.logAutoCreate(ctx, "funnel "+value, started)
	return &Resolution{Funnel: funnel, Stage: stage, Source: "autocreate"}, nil
}

func (s *MappingService) logAutoCreate(ctx context.Context, target string, started time.Time) {
	log.Printf("🆕 Mapping auto-created %s", target)
	if s.syncLog != nil {
		s.syncLog.Record(ctx, models.SyncLogEntry{
			Direction:    constants.SyncDirectionInbound,
			Status:       constants.SyncStatusWarning,
			EventType:    "mapping_autocreate",
			LatencyMs:    time.Since(started).Milliseconds(),
			ErrorMessage: "auto-created " + target,
		})
	}
}

func (s *MappingService) firstStage(ctx context.Context, funnelID string) (*models.Stage, error) {
	stages, err := s.funnels.ListStages(ctx, funnelID)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, nil
	}
	return &stages[0], nil
}

func afterColon(s string) string {
	if idx := strings.Index(s, ":"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
