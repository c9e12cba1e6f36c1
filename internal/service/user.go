package service

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/domain"
	"github.com/parlorgames/parlor/internal/dto"
)

// UserService orchestrates user profile operations. It also backs the
// external /me endpoint, which resolves the authenticated subject to a
// stored profile.
type UserService struct {
	repo           domain.UserRepository
	requireIfMatch bool
	ops            metric.Int64Counter
}

// NewUserService creates a UserService.
func NewUserService(repo domain.UserRepository, requireIfMatch bool) *UserService {
	return &UserService{
		repo:           repo,
		requireIfMatch: requireIfMatch,
		ops:            opsCounter("users"),
	}
}

// Create stores a new user profile, failing with Conflict if the id is taken.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest) (domain.UserEntity, error) {
	entity, err := req.ToEntity()
	if err != nil {
		return domain.UserEntity{}, err
	}
	saved, err := s.repo.Save(ctx, entity, domain.SaveOptions{IfNoneMatch: "*"})
	if err != nil {
		return domain.UserEntity{}, err
	}
	record(ctx, s.ops, "create")
	return saved, nil
}

// Get loads a user profile. A matching ifNoneMatch short-circuits with
// NotModified.
func (s *UserService) Get(ctx context.Context, id, ifNoneMatch string) (domain.UserEntity, error) {
	entity, err := s.repo.FindByID(ctx, id, domain.FindOptions{IfNoneMatch: ifNoneMatch})
	if err != nil {
		return domain.UserEntity{}, err
	}
	if entity == nil {
		return domain.UserEntity{}, apperr.NotFound("user", id)
	}
	record(ctx, s.ops, "get")
	return *entity, nil
}

// Replace swaps the profile wholesale.
func (s *UserService) Replace(ctx context.Context, id string, req dto.ReplaceUserRequest, ifMatch string) (domain.UserEntity, error) {
	if err := requirePrecondition(s.requireIfMatch, ifMatch); err != nil {
		return domain.UserEntity{}, err
	}
	next, err := req.ToEntity(id)
	if err != nil {
		return domain.UserEntity{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.UserEntity{}, err
	}
	next = next.WithMeta(current.Meta)

	saved, err := s.repo.Save(ctx, next, domain.SaveOptions{IfMatch: updateCondition(ifMatch, current.Meta.ETag)})
	if err != nil {
		return domain.UserEntity{}, err
	}
	record(ctx, s.ops, "replace")
	return saved, nil
}

// Merge overlays the provided fields onto the stored profile.
func (s *UserService) Merge(ctx context.Context, id string, req dto.MergeUserRequest, ifMatch string) (domain.UserEntity, error) {
	if err := requirePrecondition(s.requireIfMatch, ifMatch); err != nil {
		return domain.UserEntity{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.UserEntity{}, err
	}
	next, err := req.Apply(current)
	if err != nil {
		return domain.UserEntity{}, err
	}

	saved, err := s.repo.Save(ctx, next, domain.SaveOptions{IfMatch: updateCondition(ifMatch, current.Meta.ETag)})
	if err != nil {
		return domain.UserEntity{}, err
	}
	record(ctx, s.ops, "merge")
	return saved, nil
}

// Delete removes a user profile, optionally guarded by ifMatch.
func (s *UserService) Delete(ctx context.Context, id, ifMatch string) error {
	if err := s.repo.Delete(ctx, id, domain.DeleteOptions{IfMatch: ifMatch}); err != nil {
		return err
	}
	record(ctx, s.ops, "delete")
	return nil
}

// List pages through user profiles.
func (s *UserService) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.UserEntity], error) {
	page, err := s.repo.FindAll(ctx, q)
	if err != nil {
		return domain.Page[domain.UserEntity]{}, err
	}
	record(ctx, s.ops, "list")
	return page, nil
}

// Metadata returns the profile's etag, size and last-modified time.
func (s *UserService) Metadata(ctx context.Context, id string) (domain.Metadata, error) {
	meta, err := s.repo.GetMetadata(ctx, id)
	if err != nil {
		return domain.Metadata{}, err
	}
	record(ctx, s.ops, "metadata")
	return meta, nil
}

func (s *UserService) load(ctx context.Context, id string) (domain.UserEntity, error) {
	current, err := s.repo.FindByID(ctx, id, domain.FindOptions{})
	if err != nil {
		return domain.UserEntity{}, err
	}
	if current == nil {
		return domain.UserEntity{}, apperr.NotFound("user", id)
	}
	return *current, nil
}
