package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/domain"
)

func TestValidateID(t *testing.T) {
	valid := []string{
		"u1",
		"user-name",
		"user.name",
		"USER_42",
		"a",
		strings.Repeat("x", 128),
	}
	for _, id := range valid {
		require.NoError(t, domain.ValidateID("id", id), "expected valid: %q", id)
	}

	invalid := []string{
		"",
		"has space",
		"slash/id",
		"ключ",
		"emoji🎲",
		strings.Repeat("x", 129),
	}
	for _, id := range invalid {
		err := domain.ValidateID("id", id)
		require.Error(t, err, "expected invalid: %q", id)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Equal(t, "id", apperr.FieldOf(err))
	}
}

func TestNewUserProfile(t *testing.T) {
	p, err := domain.NewUserProfile("u1", "Alice", 7)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, 7, p.ExternalID)

	t.Run("name bounds", func(t *testing.T) {
		_, err := domain.NewUserProfile("u1", "A", 7)
		require.Error(t, err)
		assert.Equal(t, "name", apperr.FieldOf(err))

		_, err = domain.NewUserProfile("u1", strings.Repeat("n", 101), 7)
		require.Error(t, err)
		assert.Equal(t, "name", apperr.FieldOf(err))

		// Length is counted in runes, not bytes.
		_, err = domain.NewUserProfile("u1", strings.Repeat("ü", 100), 7)
		require.NoError(t, err)
	})

	t.Run("externalId positive", func(t *testing.T) {
		for _, eid := range []int{0, -1} {
			_, err := domain.NewUserProfile("u1", "Alice", eid)
			require.Error(t, err)
			assert.Equal(t, "externalId", apperr.FieldOf(err))
		}
	})

	t.Run("bad id", func(t *testing.T) {
		_, err := domain.NewUserProfile("no/slash", "Alice", 7)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestUserProfile_UpdateReturnsNewValue(t *testing.T) {
	p, err := domain.NewUserProfile("u1", "Alice", 7)
	require.NoError(t, err)

	renamed, err := p.UpdateName("Alice2")
	require.NoError(t, err)
	assert.Equal(t, "Alice2", renamed.Name)
	assert.Equal(t, "Alice", p.Name, "receiver must be unchanged")

	_, err = p.UpdateName("x")
	require.Error(t, err)

	reassigned, err := p.UpdateExternalID(9)
	require.NoError(t, err)
	assert.Equal(t, 9, reassigned.ExternalID)
	assert.Equal(t, 7, p.ExternalID)
}

func TestUserEntity_RoundTrip(t *testing.T) {
	p, err := domain.NewUserProfile("u1", "Alice", 7)
	require.NoError(t, err)
	meta := domain.Metadata{ETag: "E1", Size: 31, LastModified: "2026-01-02T03:04:05Z"}
	e := domain.NewUserEntity(p).WithMeta(meta)

	body, err := e.Payload()
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Alice","externalId":7}`, string(body))

	parsed, err := domain.ParseUserEntity("u1", body, meta)
	require.NoError(t, err)
	assert.Equal(t, e, parsed)
}

func TestParseUserEntity_RejectsBadPayloads(t *testing.T) {
	meta := domain.Metadata{}

	cases := map[string]string{
		"unknown field": `{"name":"Alice","externalId":7,"extra":1}`,
		"bad shape":     `["Alice"]`,
		"not json":      `{`,
		"bad name":      `{"name":"A","externalId":7}`,
		"bad eid":       `{"name":"Alice","externalId":0}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := domain.ParseUserEntity("u1", []byte(body), meta)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestUserEntity_OpsCarryMetadata(t *testing.T) {
	p, err := domain.NewUserProfile("u1", "Alice", 7)
	require.NoError(t, err)
	e := domain.NewUserEntity(p).WithMeta(domain.Metadata{ETag: "E1"})

	renamed, err := e.UpdateName("Bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", renamed.Profile.Name)
	assert.Equal(t, "E1", renamed.Meta.ETag, "metadata carries forward until re-saved")
	assert.Equal(t, "Alice", e.Profile.Name)
}
