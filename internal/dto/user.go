package dto

import "github.com/parlorgames/parlor/internal/domain"

// CreateUserRequest is the POST body for a user.
type CreateUserRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExternalID int    `json:"externalId"`
}

// ToEntity builds an unpersisted user entity.
func (r CreateUserRequest) ToEntity() (domain.UserEntity, error) {
	p, err := domain.NewUserProfile(r.ID, r.Name, r.ExternalID)
	if err != nil {
		return domain.UserEntity{}, err
	}
	return domain.NewUserEntity(p), nil
}

// ReplaceUserRequest is the PUT body: full state. ID, when present, must
// equal the path id.
type ReplaceUserRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExternalID int    `json:"externalId"`
}

// ToEntity builds the replacement entity for the path id.
func (r ReplaceUserRequest) ToEntity(id string) (domain.UserEntity, error) {
	if err := CheckBodyID(r.ID, id); err != nil {
		return domain.UserEntity{}, err
	}
	p, err := domain.NewUserProfile(id, r.Name, r.ExternalID)
	if err != nil {
		return domain.UserEntity{}, err
	}
	return domain.NewUserEntity(p), nil
}

// MergeUserRequest is the PATCH body. Absent fields keep their stored
// values.
type MergeUserRequest struct {
	ID         *string `json:"id"`
	Name       *string `json:"name"`
	ExternalID *int    `json:"externalId"`
}

// Apply overlays the provided fields on current.
func (r MergeUserRequest) Apply(current domain.UserEntity) (domain.UserEntity, error) {
	if r.ID != nil {
		if err := CheckBodyID(*r.ID, current.ID()); err != nil {
			return domain.UserEntity{}, err
		}
	}
	next := current
	var err error
	if r.Name != nil {
		if next, err = next.UpdateName(*r.Name); err != nil {
			return domain.UserEntity{}, err
		}
	}
	if r.ExternalID != nil {
		if next, err = next.UpdateExternalID(*r.ExternalID); err != nil {
			return domain.UserEntity{}, err
		}
	}
	return next, nil
}

// UserResponse is the wire shape of a user entity.
type UserResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExternalID int    `json:"externalId"`
}

// NewUserResponse builds the response view of e.
func NewUserResponse(e domain.UserEntity) UserResponse {
	return UserResponse{ID: e.Profile.ID, Name: e.Profile.Name, ExternalID: e.Profile.ExternalID}
}
