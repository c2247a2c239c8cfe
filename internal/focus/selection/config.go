package selection

import (
	"fmt"

	"github.com/sebas/focus/internal/focus/config"
)

// NewFromConfig builds the configured Strategy. cfg.Strategy selects among
// "region", "intra-region", "split", "single", and "visitor"; the visitor
// strategy recursively names two inner strategies (never "visitor" itself).
func NewFromConfig(cfg *config.Config) (Strategy, error) {
	return newNamed(cfg.Strategy, cfg)
}

func newNamed(name string, cfg *config.Config) (Strategy, error) {
	switch name {
	case "region", "":
		return NewRegionBased(cfg.StrategyMaxStressLevel, cfg.AllowSelectionIfNoRegionalMatch), nil
	case "intra-region":
		return NewIntraRegion(cfg.StrategyMaxStressLevel), nil
	case "split":
		return NewSplit(cfg.StrategyMaxStressLevel), nil
	case "single":
		return NewSingle(cfg.StrategyMaxStressLevel), nil
	case "visitor":
		if cfg.VisitorParticipantStrategy == "visitor" || cfg.VisitorStrategy == "visitor" {
			return nil, fmt.Errorf("selection: visitor strategy cannot name itself as an inner strategy")
		}
		participant, err := newNamed(orDefault(cfg.VisitorParticipantStrategy, "region"), cfg)
		if err != nil {
			return nil, fmt.Errorf("visitor participant strategy: %w", err)
		}
		visitor, err := newNamed(orDefault(cfg.VisitorStrategy, "single"), cfg)
		if err != nil {
			return nil, fmt.Errorf("visitor strategy: %w", err)
		}
		return NewVisitor(participant, visitor), nil
	default:
		return nil, fmt.Errorf("selection: unknown strategy %q", name)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
