package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"storefront/internal/model"
	"storefront/internal/repository"
	"strings"
	"unicode"

	"gorm.io/gorm"
)

const maxCouponCodeAttempts = 100

type CreateProfileInput struct {
	UserID      string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
}

type ProfileService interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Create(ctx context.Context, in *CreateProfileInput) (*model.Profile, error)
	ListWithOrders(ctx context.Context) ([]*model.Profile, error)
}

type profileServiceImpl struct {
	profileRepo repository.ProfileRepository
	randIntn    func(n int) int
}

func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileServiceImpl{
		profileRepo: profileRepo,
		randIntn:    rand.Intn,
	}
}

func (s *profileServiceImpl) Get(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	profile, err := s.profileRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return profile, nil
}

// ListWithOrders returns every profile by first name, each with its orders.
func (s *profileServiceImpl) ListWithOrders(ctx context.Context) ([]*model.Profile, error) {
	profiles, err := s.profileRepo.ListWithOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// Create stores a profile with a fresh personal coupon code.
func (s *profileServiceImpl) Create(ctx context.Context, in *CreateProfileInput) (*model.Profile, error) {
	if in.UserID == "" {
		return nil, ErrUnauthenticated
	}

	_, err := s.profileRepo.FindByID(ctx, in.UserID)
	if err == nil {
		return nil, ErrProfileExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find profile: %w", err)
	}

	prefix := couponPrefix(in.FirstName, in.LastName)
	for attempt := 0; attempt < maxCouponCodeAttempts; attempt++ {
		code := fmt.Sprintf("%s%02d", prefix, s.randIntn(100))

		taken, err := s.profileRepo.CouponCodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("check coupon code: %w", err)
		}
		if taken {
			continue
		}

		profile := &model.Profile{
			ID:          in.UserID,
			Email:       in.Email,
			FirstName:   strings.TrimSpace(in.FirstName),
			LastName:    strings.TrimSpace(in.LastName),
			PhoneNumber: strings.TrimSpace(in.PhoneNumber),
			CouponCode:  code,
		}
		err = s.profileRepo.Create(ctx, profile)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race on the code, or the profile itself
			if _, findErr := s.profileRepo.FindByID(ctx, in.UserID); findErr == nil {
				return nil, ErrProfileExists
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		return profile, nil
	}

	return nil, fmt.Errorf("no free coupon code for prefix %s", prefix)
}

// couponPrefix takes the first two letters of each name, upper-cased.
func couponPrefix(firstName, lastName string) string {
	return firstLetters(firstName, 2) + firstLetters(lastName, 2)
}

func firstLetters(s string, n int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if b.Len() >= n {
			break
		}
		if unicode.IsLetter(r) && r < unicode.MaxASCII {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	for b.Len() < n {
		b.WriteByte('X')
	}
	return b.String()
}
