package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Application is a course enrollment request owned by a single user.
type Application struct {
	ID            uuid.UUID
	OwnerUserID   string
	Title         string
	Link          string
	Price         *string
	StartDate     *time.Time
	Quarter       Quarter
	Justification string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// ApplicationFields are the user-editable fields of an Application after
// validation. Owner and ID are bound by the caller.
type ApplicationFields struct {
	Title         string
	Link          string
	Price         *string
	StartDate     *time.Time
	Quarter       Quarter
	Justification string
}

// Apply copies the editable fields onto app, leaving ID and owner untouched.
func (f ApplicationFields) Apply(app *Application) {
	app.Title = f.Title
	app.Link = f.Link
	app.Price = f.Price
	app.StartDate = f.StartDate
	app.Quarter = f.Quarter
	app.Justification = f.Justification
}

type ApplicationRepository interface {
	GetByID(context.Context, uuid.UUID) (Application, error)
	GetByUserID(context.Context, string) ([]Application, error)
	Create(context.Context, *Application) error
	Update(context.Context, *Application) error
	Delete(ctx context.Context, id uuid.UUID, ownerUserID string) error
}
