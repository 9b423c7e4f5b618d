package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/systemstart/formio-install/pkg/importer"
)

const (
	AdminResource     = "admin"
	AdministratorRole = "administrator"
)

var (
	ErrHashingFailed = errors.New("password hashing failed")
	ErrCreateFailed  = errors.New("root account creation failed")
	ErrMissingEntity = errors.New("imported project is missing a required entity")
)

// Platform is the part of the data platform the provisioner needs.
type Platform interface {
	EncryptPassword(ctx context.Context, plain string) (string, error)
	CreateSubmission(ctx context.Context, formID string, data map[string]any, roles []string) (string, error)
}

// AccountRef identifies the created root account.
type AccountRef struct {
	ID     string `json:"id"`
	FormID string `json:"form"`
	Email  string `json:"email"`
}

// ProvisionRoot creates the root administrative account in the admin
// resource of project, holding the administrator role. The password is
// hashed before anything is stored.
func ProvisionRoot(ctx context.Context, platform Platform, project *importer.Project, email, password string) (AccountRef, error) {
	if project == nil {
		return AccountRef{}, fmt.Errorf("%w: no imported project", ErrMissingEntity)
	}
	admin, ok := project.Lookup(importer.SectionResources, AdminResource)
	if !ok {
		return AccountRef{}, fmt.Errorf("%w: resource %q", ErrMissingEntity, AdminResource)
	}
	role, ok := project.Lookup(importer.SectionRoles, AdministratorRole)
	if !ok {
		return AccountRef{}, fmt.Errorf("%w: role %q", ErrMissingEntity, AdministratorRole)
	}

	slog.Info("encrypting root password")
	hash, err := platform.EncryptPassword(ctx, password)
	if err != nil {
		return AccountRef{}, fmt.Errorf("%w: %w", ErrHashingFailed, err)
	}

	slog.Info("creating root account", "email", email, "form", admin.ID)
	data := map[string]any{
		"email":    email,
		"password": hash,
	}
	id, err := platform.CreateSubmission(ctx, admin.ID, data, []string{role.ID})
	if err != nil {
		return AccountRef{}, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	return AccountRef{ID: id, FormID: admin.ID, Email: email}, nil
}
