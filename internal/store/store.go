package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/tellerbot/internal/domain"
)

// Store exposes the persistence operations of the bot on top of DB.
type Store struct {
	db *DB
}

// New creates a store using the given database.
func New(db *DB) *Store {
	return &Store{db: db}
}

// FindOrCreatePrincipal returns the principal with the candidate's chat id,
// creating it together with its session on first contact. The candidate's
// admin flag is persisted as computed by the caller and never re-derived.
func (s *Store) FindOrCreatePrincipal(ctx context.Context, candidate *domain.Principal) (*domain.Principal, error) {
	p, err := s.principalByTelegramID(ctx, candidate.TelegramID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin create principal: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO principals (telegram_id, first_name, last_name, username, language_code, is_admin, is_bot)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		candidate.TelegramID, candidate.FirstName, candidate.LastName,
		candidate.Username, candidate.LanguageCode, candidate.IsAdmin, candidate.IsBot,
	)
	if err != nil {
		return nil, fmt.Errorf("store: inserting principal: %w", err)
	}
	principalID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: principal id: %w", err)
	}

	// The session is created with the principal: one per principal, with
	// context absent until a workflow claims it.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (principal_id) VALUES (?)`, principalID,
	); err != nil {
		return nil, fmt.Errorf("store: inserting session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit create principal: %w", err)
	}

	s.db.log.Info().Int64("telegramId", candidate.TelegramID).Msg("principal created")
	return s.principalByTelegramID(ctx, candidate.TelegramID)
}

func (s *Store) principalByTelegramID(ctx context.Context, telegramID int64) (*domain.Principal, error) {
	var (
		p        domain.Principal
		sess     domain.Session
		pCreated string
		sCreated string
		ctxData  sql.NullString
	)
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT p.id, p.telegram_id, p.first_name, p.last_name, p.username,
		        p.language_code, p.is_admin, p.is_bot, p.created_at,
		        s.id, s.principal_id, s.context, s.state, s.context_data, s.created_at
		 FROM principals p
		 JOIN sessions s ON s.principal_id = p.id
		 WHERE p.telegram_id = ?`, telegramID,
	).Scan(
		&p.ID, &p.TelegramID, &p.FirstName, &p.LastName, &p.Username,
		&p.LanguageCode, &p.IsAdmin, &p.IsBot, &pCreated,
		&sess.ID, &sess.PrincipalID, &sess.Context, &sess.State, &ctxData, &sCreated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: loading principal: %w", err)
	}

	p.CreatedAt, _ = time.Parse(time.DateTime, pCreated)
	sess.CreatedAt, _ = time.Parse(time.DateTime, sCreated)
	if ctxData.Valid && ctxData.String != "" {
		sess.ContextData = []byte(ctxData.String)
	}
	p.Session = &sess
	return &p, nil
}

// UpdateSession persists the session's context, state and payload. The
// three fields are always written together so a reset is never partial.
func (s *Store) UpdateSession(ctx context.Context, sess *domain.Session) error {
	var ctxData any
	if sess.ContextData != nil {
		ctxData = string(sess.ContextData)
	}
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE sessions SET context = ?, state = ?, context_data = ? WHERE id = ?`,
		sess.Context, sess.State, ctxData, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("store: updating session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: session %d not found", sess.ID)
	}
	return nil
}

// ServiceByCommand loads the service registered under command, with its
// parent (and the parent's children, for sibling checks), its own
// children, and its catalog entries. Returns nil when no such service
// exists.
func (s *Store) ServiceByCommand(ctx context.Context, command string) (*domain.Service, error) {
	svc, err := s.scanService(ctx, `WHERE command = ?`, command)
	if err != nil || svc == nil {
		return svc, err
	}
	return svc, s.loadServiceGraph(ctx, svc)
}

// RootService loads the service with no parent (the menu).
func (s *Store) RootService(ctx context.Context) (*domain.Service, error) {
	svc, err := s.scanService(ctx, `WHERE parent_id IS NULL`)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, errors.New("store: no root service configured")
	}
	return svc, s.loadServiceGraph(ctx, svc)
}

func (s *Store) scanService(ctx context.Context, where string, args ...any) (*domain.Service, error) {
	var (
		svc      domain.Service
		parentID sql.NullInt64
		created  string
	)
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, command, en_desc, fr_desc, admin_only, parent_id, created_at FROM services `+where,
		args...,
	).Scan(&svc.ID, &svc.Command, &svc.EnDesc, &svc.FrDesc, &svc.AdminOnly, &parentID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: loading service: %w", err)
	}
	svc.ParentID = parentID.Int64
	svc.CreatedAt, _ = time.Parse(time.DateTime, created)
	return &svc, nil
}

func (s *Store) loadServiceGraph(ctx context.Context, svc *domain.Service) error {
	children, err := s.childServices(ctx, svc.ID)
	if err != nil {
		return err
	}
	svc.Children = children

	if svc.ParentID != 0 {
		parent, err := s.scanService(ctx, `WHERE id = ?`, svc.ParentID)
		if err != nil {
			return err
		}
		if parent != nil {
			parent.Children, err = s.childServices(ctx, parent.ID)
			if err != nil {
				return err
			}
			svc.Parent = parent
		}
	}

	return s.loadCatalogs(ctx, svc)
}

func (s *Store) childServices(ctx context.Context, parentID int64) ([]*domain.Service, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, command, en_desc, fr_desc, admin_only, parent_id, created_at
		 FROM services WHERE parent_id = ? ORDER BY id`, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: loading child services: %w", err)
	}
	defer rows.Close()

	var children []*domain.Service
	for rows.Next() {
		var (
			child   domain.Service
			pid     sql.NullInt64
			created string
		)
		if err := rows.Scan(&child.ID, &child.Command, &child.EnDesc, &child.FrDesc,
			&child.AdminOnly, &pid, &created); err != nil {
			return nil, fmt.Errorf("store: scanning child service: %w", err)
		}
		child.ParentID = pid.Int64
		child.CreatedAt, _ = time.Parse(time.DateTime, created)
		children = append(children, &child)
	}
	return children, rows.Err()
}

func (s *Store) loadCatalogs(ctx context.Context, svc *domain.Service) error {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT c.provider_id, c.service_id, COALESCE(c.pricing_id, 0),
		        p.name, COALESCE(p.utility_providers, ''),
		        COALESCE(pc.id, 0), COALESCE(pc.receipt_url, ''), COALESCE(pc.receipt_host, ''),
		        COALESCE(pc.receipt_referer, ''), COALESCE(pc.trx_id_length, 0),
		        COALESCE(pr.name, ''), COALESCE(pr.url, ''), COALESCE(pr.lines, '')
		 FROM catalogs c
		 JOIN providers p ON p.id = c.provider_id
		 LEFT JOIN provider_configs pc ON pc.provider_id = p.id
		 LEFT JOIN pricings pr ON pr.id = c.pricing_id
		 WHERE c.service_id = ?
		 ORDER BY p.name`, svc.ID,
	)
	if err != nil {
		return fmt.Errorf("store: loading catalogs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cat       domain.Catalog
			provider  domain.Provider
			cfg       domain.ProviderConfig
			utilities string
			prName    string
			prURL     string
			prLines   string
		)
		if err := rows.Scan(&cat.ProviderID, &cat.ServiceID, &cat.PricingID,
			&provider.Name, &utilities,
			&cfg.ID, &cfg.ReceiptURL, &cfg.ReceiptHost, &cfg.ReceiptReferer, &cfg.TrxIDLength,
			&prName, &prURL, &prLines); err != nil {
			return fmt.Errorf("store: scanning catalog: %w", err)
		}

		provider.ID = cat.ProviderID
		if utilities != "" {
			if err := json.Unmarshal([]byte(utilities), &provider.Utilities); err != nil {
				return fmt.Errorf("store: parsing utilities for provider %d: %w", provider.ID, err)
			}
		}
		if cfg.ID != 0 {
			cfg.ProviderID = provider.ID
			provider.Config = &cfg
		}
		cat.Provider = &provider

		if cat.PricingID != 0 {
			cat.Pricing = &domain.Pricing{ID: cat.PricingID, Name: prName, URL: prURL, Lines: prLines}
		}
		svc.Catalogs = append(svc.Catalogs, &cat)
	}
	return rows.Err()
}
