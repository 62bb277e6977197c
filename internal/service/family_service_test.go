package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/models"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
)

type mockFamilyRepo struct {
	families map[string]*models.Family
	byCode   map[string]*models.Family
	members  []models.FamilyMember
}

func newMockFamilyRepo() *mockFamilyRepo {
	return &mockFamilyRepo{families: make(map[string]*models.Family), byCode: make(map[string]*models.Family)}
}

func (m *mockFamilyRepo) GetByID(ctx context.Context, id string) (*models.Family, error) {
	family, ok := m.families[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return family, nil
}

func (m *mockFamilyRepo) GetByInviteCode(ctx context.Context, code string) (*models.Family, error) {
	family, ok := m.byCode[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return family, nil
}

func (m *mockFamilyRepo) Create(ctx context.Context, family *models.Family) error {
	family.ID = "fam-new"
	m.families[family.ID] = family
	m.byCode[family.InviteCode] = family
	return nil
}

func (m *mockFamilyRepo) UpdateInviteCode(ctx context.Context, id, code string) error {
	family, ok := m.families[id]
	if !ok {
		return sql.ErrNoRows
	}
	delete(m.byCode, family.InviteCode)
	family.InviteCode = code
	m.byCode[code] = family
	return nil
}

func (m *mockFamilyRepo) ListMembers(ctx context.Context, familyID string) ([]models.FamilyMember, error) {
	return m.members, nil
}

type mockFamilyUsers struct {
	users       map[string]*models.User
	assignments map[string]*string
	roles       map[string]models.UserRole
}

func newMockFamilyUsers(users ...*models.User) *mockFamilyUsers {
	m := &mockFamilyUsers{users: make(map[string]*models.User), assignments: make(map[string]*string), roles: make(map[string]models.UserRole)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockFamilyUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockFamilyUsers) SetFamily(ctx context.Context, id string, familyID *string, role models.UserRole) error {
	m.assignments[id] = familyID
	m.roles[id] = role
	if user, ok := m.users[id]; ok {
		user.FamilyID = familyID
		user.Role = role
	}
	return nil
}

func TestFamilyServiceCreateAssignsOwner(t *testing.T) {
	users := newMockFamilyUsers(&models.User{ID: "u1"})
	svc := NewFamilyService(newMockFamilyRepo(), users, validator.New(), zap.NewNop())

	family, err := svc.Create(context.Background(), "u1", models.CreateFamilyRequest{Name: "The Does"})
	require.NoError(t, err)
	assert.NotEmpty(t, family.InviteCode)
	assert.Len(t, family.InviteCode, inviteCodeLength)
	assert.Equal(t, models.RoleOwner, users.roles["u1"])
	require.NotNil(t, users.assignments["u1"])
	assert.Equal(t, family.ID, *users.assignments["u1"])
}

func TestFamilyServiceCreateRejectsSecondFamily(t *testing.T) {
	existing := "fam-1"
	users := newMockFamilyUsers(&models.User{ID: "u1", FamilyID: &existing})
	svc := NewFamilyService(newMockFamilyRepo(), users, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "u1", models.CreateFamilyRequest{Name: "Another"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFamilyServiceJoinByInviteCode(t *testing.T) {
	repo := newMockFamilyRepo()
	family := &models.Family{ID: "fam-1", Name: "The Does", InviteCode: "ABCD2345"}
	repo.families[family.ID] = family
	repo.byCode[family.InviteCode] = family
	users := newMockFamilyUsers(&models.User{ID: "u2"})
	svc := NewFamilyService(repo, users, validator.New(), zap.NewNop())

	joined, err := svc.Join(context.Background(), "u2", models.JoinFamilyRequest{InviteCode: "ABCD2345"})
	require.NoError(t, err)
	assert.Equal(t, family.ID, joined.ID)
	assert.Equal(t, models.RoleMember, users.roles["u2"])
}

func TestFamilyServiceJoinUnknownCode(t *testing.T) {
	users := newMockFamilyUsers(&models.User{ID: "u2"})
	svc := NewFamilyService(newMockFamilyRepo(), users, validator.New(), zap.NewNop())

	_, err := svc.Join(context.Background(), "u2", models.JoinFamilyRequest{InviteCode: "NOPE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInviteInvalid.Code, appErrors.FromError(err).Code)
}

func TestFamilyServiceRotateInviteCode(t *testing.T) {
	repo := newMockFamilyRepo()
	family := &models.Family{ID: "fam-1", InviteCode: "OLDCODE1"}
	repo.families[family.ID] = family
	repo.byCode[family.InviteCode] = family
	svc := NewFamilyService(repo, newMockFamilyUsers(), validator.New(), zap.NewNop())

	rotated, err := svc.RotateInviteCode(context.Background(), "fam-1")
	require.NoError(t, err)
	assert.NotEqual(t, "OLDCODE1", rotated.InviteCode)
}

func TestFamilyServiceRemoveMember(t *testing.T) {
	famID := "fam-1"
	repo := newMockFamilyRepo()
	repo.families[famID] = &models.Family{ID: famID}
	users := newMockFamilyUsers(&models.User{ID: "u2", FamilyID: &famID, Role: models.RoleMember})
	svc := NewFamilyService(repo, users, validator.New(), zap.NewNop())

	require.NoError(t, svc.RemoveMember(context.Background(), famID, "u1", "u2"))
	assert.Nil(t, users.assignments["u2"])
}

func TestFamilyServiceRemoveMemberOutsideFamily(t *testing.T) {
	otherFam := "fam-2"
	users := newMockFamilyUsers(&models.User{ID: "u2", FamilyID: &otherFam})
	svc := NewFamilyService(newMockFamilyRepo(), users, validator.New(), zap.NewNop())

	err := svc.RemoveMember(context.Background(), "fam-1", "u1", "u2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFamilyMember.Code, appErrors.FromError(err).Code)
}

func TestFamilyServiceOwnerCannotLeaveWithMembers(t *testing.T) {
	famID := "fam-1"
	repo := newMockFamilyRepo()
	repo.families[famID] = &models.Family{ID: famID}
	repo.members = []models.FamilyMember{{UserID: "u1"}, {UserID: "u2"}}
	users := newMockFamilyUsers(&models.User{ID: "u1", FamilyID: &famID, Role: models.RoleOwner})
	svc := NewFamilyService(repo, users, validator.New(), zap.NewNop())

	err := svc.Leave(context.Background(), famID, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
