package repository

import (
	"context"
	"fmt"

	"github.com/pzse-platform/iebc-backend/internal/compliance"
)

// LoadRuleset reads the compatibility relation from the reference
// tables. It runs once at startup; rule changes need a restart.
func (s *Store) LoadRuleset(ctx context.Context) (compliance.Ruleset, error) {
	rules := compliance.Ruleset{
		CompatiblePairs:    make(map[string]map[string]bool),
		SupportedRoofLoads: make(map[string]bool),
	}

	rows, err := s.db.Q(ctx).Query(ctx,
		`SELECT risk_category, exposure_category FROM compatible_pairs`)
	if err != nil {
		return rules, fmt.Errorf("load compatible pairs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var risk, exposure string
		if err := rows.Scan(&risk, &exposure); err != nil {
			return rules, fmt.Errorf("scan compatible pair: %w", err)
		}
		if rules.CompatiblePairs[risk] == nil {
			rules.CompatiblePairs[risk] = make(map[string]bool)
		}
		rules.CompatiblePairs[risk][exposure] = true
	}
	if err := rows.Err(); err != nil {
		return rules, fmt.Errorf("read compatible pairs: %w", err)
	}

	loadRows, err := s.db.Q(ctx).Query(ctx,
		`SELECT load_category FROM existing_roof_loads WHERE supported = true`)
	if err != nil {
		return rules, fmt.Errorf("load supported roof loads: %w", err)
	}
	defer loadRows.Close()
	for loadRows.Next() {
		var load string
		if err := loadRows.Scan(&load); err != nil {
			return rules, fmt.Errorf("scan roof load: %w", err)
		}
		rules.SupportedRoofLoads[load] = true
	}
	if err := loadRows.Err(); err != nil {
		return rules, fmt.Errorf("read roof loads: %w", err)
	}

	return rules, nil
}
