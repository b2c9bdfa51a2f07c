package service

import (
	"context"

	"juni-core/internal/domain"
	"juni-core/internal/repository"
)

// OwnershipChecker identity/authorization collaborator: confirms the caller
// owns the family a senior belongs to.
type OwnershipChecker interface {
	// CheckSeniorOwner returns a NotFound error when the senior does not exist
	// and an authorization error when requesterID does not own its family.
	CheckSeniorOwner(ctx context.Context, requesterID, seniorID string) (*domain.SeniorProfile, error)
	CheckFamilyOwner(ctx context.Context, requesterID, familyID string) error
}

// FamilyOwnership resolves ownership through families.owner_user_id
type FamilyOwnership struct {
	seniors repository.SeniorsRepository
}

func NewFamilyOwnership(seniors repository.SeniorsRepository) *FamilyOwnership {
	return &FamilyOwnership{seniors: seniors}
}

func (o *FamilyOwnership) CheckSeniorOwner(ctx context.Context, requesterID, seniorID string) (*domain.SeniorProfile, error) {
	senior, err := o.seniors.GetSenior(ctx, seniorID)
	if err != nil {
		return nil, err
	}
	if err := o.CheckFamilyOwner(ctx, requesterID, senior.FamilyID); err != nil {
		return nil, err
	}
	return senior, nil
}

func (o *FamilyOwnership) CheckFamilyOwner(ctx context.Context, requesterID, familyID string) error {
	if requesterID == "" {
		return domain.Unauthorized("check owner", "requester identity is required")
	}
	family, err := o.seniors.GetFamily(ctx, familyID)
	if err != nil {
		return err
	}
	if family.OwnerUserID != requesterID {
		return domain.Unauthorized("check owner", "you do not have access to this senior")
	}
	return nil
}
