package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/parlorgames/parlor/internal/apperr"
)

const (
	// UserNameMinLength and UserNameMaxLength bound the profile name, in runes.
	UserNameMinLength = 2
	UserNameMaxLength = 100
)

// UserProfile is the pure user aggregate. Values are immutable; update
// operations validate and return a new profile.
type UserProfile struct {
	ID         string
	Name       string
	ExternalID int
}

// NewUserProfile validates all fields and builds a profile.
func NewUserProfile(id, name string, externalID int) (UserProfile, error) {
	if err := ValidateID("id", id); err != nil {
		return UserProfile{}, err
	}
	if n := utf8.RuneCountInString(name); n < UserNameMinLength || n > UserNameMaxLength {
		return UserProfile{}, apperr.Validationf("name", "name must be %d-%d characters", UserNameMinLength, UserNameMaxLength)
	}
	if externalID < 1 {
		return UserProfile{}, apperr.Validation("externalId", "externalId must be a positive integer")
	}
	return UserProfile{ID: id, Name: name, ExternalID: externalID}, nil
}

// UpdateName returns a profile with the new name. The receiver is unchanged.
func (p UserProfile) UpdateName(name string) (UserProfile, error) {
	return NewUserProfile(p.ID, name, p.ExternalID)
}

// UpdateExternalID returns a profile with the new external id.
func (p UserProfile) UpdateExternalID(externalID int) (UserProfile, error) {
	return NewUserProfile(p.ID, p.Name, externalID)
}

// userPayload is the persisted data subtree of a user entity. The id is not
// part of it; it lives in the object key.
type userPayload struct {
	Name       string `json:"name"`
	ExternalID int    `json:"externalId"`
}

// UserEntity wraps a UserProfile with the metadata of its stored object.
// Every operation delegates to the profile and carries the metadata forward
// so a subsequent save can cite it in preconditions.
type UserEntity struct {
	Profile UserProfile
	Meta    Metadata
}

// NewUserEntity wraps an unpersisted profile.
func NewUserEntity(profile UserProfile) UserEntity {
	return UserEntity{Profile: profile}
}

// ParseUserEntity validates body as a stored user payload for id and builds
// the entity carrying meta. Unknown fields in the payload are rejected.
func ParseUserEntity(id string, body []byte, meta Metadata) (UserEntity, error) {
	var p userPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return UserEntity{}, apperr.Validationf("", "user payload: %v", err)
	}
	profile, err := NewUserProfile(id, p.Name, p.ExternalID)
	if err != nil {
		return UserEntity{}, err
	}
	return UserEntity{Profile: profile, Meta: meta}, nil
}

// ID returns the entity identifier.
func (e UserEntity) ID() string { return e.Profile.ID }

// Payload serializes the persisted data subtree.
func (e UserEntity) Payload() ([]byte, error) {
	b, err := json.Marshal(userPayload{Name: e.Profile.Name, ExternalID: e.Profile.ExternalID})
	if err != nil {
		return nil, fmt.Errorf("domain: marshal user %s: %w", e.Profile.ID, err)
	}
	return b, nil
}

// WithMeta returns the entity carrying the given store metadata.
func (e UserEntity) WithMeta(meta Metadata) UserEntity {
	return UserEntity{Profile: e.Profile, Meta: meta}
}

// UpdateName delegates to the profile and keeps the current metadata.
func (e UserEntity) UpdateName(name string) (UserEntity, error) {
	p, err := e.Profile.UpdateName(name)
	if err != nil {
		return UserEntity{}, err
	}
	return UserEntity{Profile: p, Meta: e.Meta}, nil
}

// UpdateExternalID delegates to the profile and keeps the current metadata.
func (e UserEntity) UpdateExternalID(externalID int) (UserEntity, error) {
	p, err := e.Profile.UpdateExternalID(externalID)
	if err != nil {
		return UserEntity{}, err
	}
	return UserEntity{Profile: p, Meta: e.Meta}, nil
}
