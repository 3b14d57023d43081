package store

import (
	"context"
	"fmt"
)

// Seed populates an empty database with the service catalog: providers,
// their configs, pricing schedules, the service tree and the catalog
// links. Running against a non-empty catalog is a no-op.
func (s *Store) Seed(ctx context.Context) error {
	var count int
	if err := s.db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM services`).Scan(&count); err != nil {
		return fmt.Errorf("store: checking catalog: %w", err)
	}
	if count > 0 {
		s.db.log.Info().Msg("catalog already seeded, skipping")
		return nil
	}

	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin seed: %w", err)
	}
	defer tx.Rollback()

	exec := func(query string, args ...any) (int64, error) {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	mtn, err := exec(`INSERT INTO providers (name, utility_providers) VALUES (?, ?)`,
		"MTN MoMo", `[{"id":"eneo","company_name":"ENEO"},{"id":"camwater","company_name":"CamWater"}]`)
	if err != nil {
		return fmt.Errorf("store: seeding providers: %w", err)
	}
	orange, err := exec(`INSERT INTO providers (name, utility_providers) VALUES (?, NULL)`, "Orange Money")
	if err != nil {
		return fmt.Errorf("store: seeding providers: %w", err)
	}

	if _, err := exec(
		`INSERT INTO provider_configs (provider_id, receipt_url, receipt_host, receipt_referer, trx_id_length)
		 VALUES (?, ?, ?, ?, ?)`,
		mtn, "https://receipts.mtn.example/api/receipt?utility=%s&trx=%s",
		"receipts.mtn.example", "https://portal.mtn.example/", 20,
	); err != nil {
		return fmt.Errorf("store: seeding provider configs: %w", err)
	}

	cashOutPricing, err := exec(`INSERT INTO pricings (name, url, lines) VALUES (?, ?, ?)`,
		"cash-out standard", "https://pricing.example/cash-out",
		`[{"from":500,"to":2500,"fee":50},{"from":2501,"to":175000,"fee":0.02}]`)
	if err != nil {
		return fmt.Errorf("store: seeding pricings: %w", err)
	}
	cashInPricing, err := exec(`INSERT INTO pricings (name, url, lines) VALUES (?, ?, ?)`,
		"cash-in standard", "https://pricing.example/cash-in",
		`[{"from":500,"to":5000,"fee":25},{"from":5001,"to":175000,"fee":0.01}]`)
	if err != nil {
		return fmt.Errorf("store: seeding pricings: %w", err)
	}

	root, err := exec(`INSERT INTO services (command, en_desc, fr_desc) VALUES (?, ?, ?)`,
		"/start", "Main menu", "Menu principal")
	if err != nil {
		return fmt.Errorf("store: seeding services: %w", err)
	}
	cashOut, err := exec(`INSERT INTO services (command, en_desc, fr_desc, parent_id) VALUES (?, ?, ?, ?)`,
		"/cashout", "Cash out", "Retrait d'argent", root)
	if err != nil {
		return fmt.Errorf("store: seeding services: %w", err)
	}
	cashIn, err := exec(`INSERT INTO services (command, en_desc, fr_desc, parent_id) VALUES (?, ?, ?, ?)`,
		"/cashin", "Cash in", "Dépôt d'argent", root)
	if err != nil {
		return fmt.Errorf("store: seeding services: %w", err)
	}
	receipt, err := exec(`INSERT INTO services (command, en_desc, fr_desc, parent_id) VALUES (?, ?, ?, ?)`,
		"/receipt", "Download a receipt", "Télécharger un reçu", root)
	if err != nil {
		return fmt.Errorf("store: seeding services: %w", err)
	}
	if _, err := exec(`INSERT INTO services (command, en_desc, fr_desc, parent_id) VALUES (?, ?, ?, ?)`,
		"/about", "About this bot", "À propos de ce bot", root); err != nil {
		return fmt.Errorf("store: seeding services: %w", err)
	}

	catalogRows := []struct {
		provider, service, pricing int64
	}{
		{mtn, cashOut, cashOutPricing},
		{orange, cashOut, cashOutPricing},
		{mtn, cashIn, cashInPricing},
		{orange, cashIn, cashInPricing},
		{mtn, receipt, 0},
	}
	for _, row := range catalogRows {
		var pricing any
		if row.pricing != 0 {
			pricing = row.pricing
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalogs (provider_id, service_id, pricing_id) VALUES (?, ?, ?)`,
			row.provider, row.service, pricing,
		); err != nil {
			return fmt.Errorf("store: seeding catalogs: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit seed: %w", err)
	}
	s.db.log.Info().Msg("catalog seeded")
	return nil
}
