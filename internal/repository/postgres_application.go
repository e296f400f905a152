package repository

import (
	"context"
	"errors"

	"github.com/bjarke-xyz/course-applications/internal/domain"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type postgresApplicationRepository struct {
	conn Connection
}

func NewPostgresApplication(conn Connection) domain.ApplicationRepository {
	return &postgresApplicationRepository{conn: conn}
}

const applicationColumns = `id, owner_user_id, title, link, price, start_date, quarter, justification, created_at, updated_at`

// GetByID implements domain.ApplicationRepository.
func (p *postgresApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Application, error) {
	var app domain.Application
	rows, err := p.conn.Query(ctx, "SELECT "+applicationColumns+" FROM applications WHERE id = $1", id)
	if err != nil {
		return app, err
	}
	err = pgxscan.ScanOne(&app, rows)
	if err != nil {
		if pgxscan.NotFound(err) {
			return app, domain.ErrNotFound
		}
		return app, err
	}
	return app, nil
}

// GetByUserID implements domain.ApplicationRepository.
func (p *postgresApplicationRepository) GetByUserID(ctx context.Context, userID string) ([]domain.Application, error) {
	apps := make([]domain.Application, 0)
	query := "SELECT " + applicationColumns + " FROM applications WHERE owner_user_id = $1 ORDER BY created_at, id"
	err := pgxscan.Select(ctx, p.conn, &apps, query, userID)
	if err != nil {
		return apps, err
	}
	return apps, nil
}

// Create implements domain.ApplicationRepository. A duplicate id gives
// domain.ErrConflict.
func (p *postgresApplicationRepository) Create(ctx context.Context, app *domain.Application) error {
	query := `
		INSERT INTO applications (id, owner_user_id, title, link, price, start_date, quarter, justification, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at`
	err := p.conn.QueryRow(ctx, query,
		app.ID, app.OwnerUserID, app.Title, app.Link, app.Price, app.StartDate, app.Quarter, app.Justification,
	).Scan(&app.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrConflict
	}
	return err
}

// Update implements domain.ApplicationRepository. The owner is part of the
// predicate so a row can never be written across owners.
func (p *postgresApplicationRepository) Update(ctx context.Context, app *domain.Application) error {
	query := `
		UPDATE applications
		SET title = $1, link = $2, price = $3, start_date = $4, quarter = $5, justification = $6, updated_at = NOW()
		WHERE id = $7 AND owner_user_id = $8
		RETURNING updated_at`
	err := p.conn.QueryRow(ctx, query,
		app.Title, app.Link, app.Price, app.StartDate, app.Quarter, app.Justification, app.ID, app.OwnerUserID,
	).Scan(&app.UpdatedAt)
	if pgxscan.NotFound(err) {
		return domain.ErrNotFound
	}
	return err
}

// Delete implements domain.ApplicationRepository.
func (p *postgresApplicationRepository) Delete(ctx context.Context, id uuid.UUID, ownerUserID string) error {
	tag, err := p.conn.Exec(ctx, "DELETE FROM applications WHERE id = $1 AND owner_user_id = $2", id, ownerUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
