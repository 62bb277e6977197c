package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/models"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
)

const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const inviteCodeLength = 8

type familyRepository interface {
	GetByID(ctx context.Context, id string) (*models.Family, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Family, error)
	Create(ctx context.Context, family *models.Family) error
	UpdateInviteCode(ctx context.Context, id, code string) error
	ListMembers(ctx context.Context, familyID string) ([]models.FamilyMember, error)
}

type familyUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	SetFamily(ctx context.Context, id string, familyID *string, role models.UserRole) error
}

// FamilyService manages families and membership.
type FamilyService struct {
	repo      familyRepository
	users     familyUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFamilyService constructs a FamilyService.
func NewFamilyService(repo familyRepository, users familyUserRepository, validate *validator.Validate, logger *zap.Logger) *FamilyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FamilyService{repo: repo, users: users, validator: validate, logger: logger}
}

// Create creates a family and makes the caller its owner.
func (s *FamilyService) Create(ctx context.Context, userID string, req models.CreateFamilyRequest) (*models.Family, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid family payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.FamilyID != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already belongs to a family")
	}

	code, err := generateInviteCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate invite code")
	}

	family := &models.Family{
		Name:       req.Name,
		InviteCode: code,
		CreatedBy:  userID,
	}
	if err := s.repo.Create(ctx, family); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create family")
	}

	if err := s.users.SetFamily(ctx, userID, &family.ID, models.RoleOwner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign owner")
	}
	return family, nil
}

// Get returns a family the caller belongs to.
func (s *FamilyService) Get(ctx context.Context, familyID string) (*models.Family, error) {
	family, err := s.repo.GetByID(ctx, familyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch family")
	}
	return family, nil
}

// Join adds the caller to the family matching the invite code.
func (s *FamilyService) Join(ctx context.Context, userID string, req models.JoinFamilyRequest) (*models.Family, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.FamilyID != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already belongs to a family")
	}

	family, err := s.repo.GetByInviteCode(ctx, req.InviteCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInviteInvalid, "invite code is invalid")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up invite code")
	}

	if err := s.users.SetFamily(ctx, userID, &family.ID, models.RoleMember); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join family")
	}
	return family, nil
}

// RotateInviteCode replaces the family invite code. Owner only.
func (s *FamilyService) RotateInviteCode(ctx context.Context, familyID string) (*models.Family, error) {
	family, err := s.Get(ctx, familyID)
	if err != nil {
		return nil, err
	}
	code, err := generateInviteCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate invite code")
	}
	if err := s.repo.UpdateInviteCode(ctx, family.ID, code); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate invite code")
	}
	family.InviteCode = code
	return family, nil
}

// ListMembers returns the family roster.
func (s *FamilyService) ListMembers(ctx context.Context, familyID string) ([]models.FamilyMember, error) {
	members, err := s.repo.ListMembers(ctx, familyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return members, nil
}

// RemoveMember detaches a member from the family. Owners cannot remove themselves.
func (s *FamilyService) RemoveMember(ctx context.Context, familyID, callerID, memberID string) error {
	if callerID == memberID {
		return appErrors.Clone(appErrors.ErrValidation, "use leave to remove yourself")
	}
	member, err := s.users.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch member")
	}
	if member.FamilyID == nil || *member.FamilyID != familyID {
		return appErrors.Clone(appErrors.ErrNotFamilyMember, "user does not belong to this family")
	}
	if err := s.users.SetFamily(ctx, memberID, nil, models.RoleMember); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove member")
	}
	return nil
}

// Leave detaches the caller from their family. The owner cannot leave
// while other members remain.
func (s *FamilyService) Leave(ctx context.Context, familyID, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.FamilyID == nil || *user.FamilyID != familyID {
		return appErrors.Clone(appErrors.ErrNotFamilyMember, "user does not belong to this family")
	}
	if user.Role == models.RoleOwner {
		members, err := s.repo.ListMembers(ctx, familyID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
		}
		if len(members) > 1 {
			return appErrors.Clone(appErrors.ErrConflict, "transfer ownership before leaving")
		}
	}
	if err := s.users.SetFamily(ctx, userID, nil, models.RoleMember); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to leave family")
	}
	return nil
}

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, inviteCodeLength)
	for i, b := range buf {
		code[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(code), nil
}
