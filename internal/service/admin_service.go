package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"choreking/internal/billing"
	"choreking/internal/models"
	"choreking/internal/repository"
)

var ErrBillingUnavailable = errors.New("billing provider not configured")

// AdminService backs the operator dashboard: family listings, platform
// statistics and the revenue overview, plus subscription sync against the
// billing provider.
type AdminService struct {
	familyRepo *repository.FamilyRepository
	childRepo  *repository.ChildRepository
	rewardRepo *repository.RewardRepository
	billing    *billing.Client
}

// NewAdminService creates a new admin service. billingClient may be nil when
// no provider is configured.
func NewAdminService(
	familyRepo *repository.FamilyRepository,
	childRepo *repository.ChildRepository,
	rewardRepo *repository.RewardRepository,
	billingClient *billing.Client,
) *AdminService {
	return &AdminService{
		familyRepo: familyRepo,
		childRepo:  childRepo,
		rewardRepo: rewardRepo,
		billing:    billingClient,
	}
}

// FamilyListing is a back-office family row on the wire
type FamilyListing struct {
	ID                   string  `json:"id"`
	FamilyName           string  `json:"familyName"`
	City                 string  `json:"city"`
	Email                string  `json:"email"`
	FamilyCode           string  `json:"familyCode"`
	ChildrenCount        int     `json:"childrenCount"`
	SubscriptionStatus   string  `json:"subscriptionStatus"`
	SubscriptionPlan     *string `json:"subscriptionPlan"`
	SubscriptionInterval *string `json:"subscriptionInterval"`
	CreatedAt            string  `json:"createdAt"`
}

// ListFamilies returns every family with child counts, newest first
func (s *AdminService) ListFamilies() ([]FamilyListing, error) {
	summaries, err := s.familyRepo.ListSummaries()
	if err != nil {
		return nil, err
	}

	listings := []FamilyListing{}
	for _, summary := range summaries {
		listings = append(listings, FamilyListing{
			ID:                   summary.ID,
			FamilyName:           summary.FamilyName,
			City:                 summary.City,
			Email:                summary.Email,
			FamilyCode:           summary.FamilyCode,
			ChildrenCount:        summary.ChildrenCount,
			SubscriptionStatus:   summary.SubscriptionStatus,
			SubscriptionPlan:     summary.SubscriptionPlan,
			SubscriptionInterval: summary.SubscriptionInterval,
			CreatedAt:            formatTime(summary.CreatedAt),
		})
	}
	return listings, nil
}

// PlatformStats is the headline-numbers block of the dashboard
type PlatformStats struct {
	TotalFamilies       int `json:"totalFamilies"`
	TotalChildren       int `json:"totalChildren"`
	TotalLifetimePoints int `json:"totalLifetimePoints"`
	DonationPoints      int `json:"donationPoints"`
}

// Stats aggregates platform-wide counters
func (s *AdminService) Stats() (*PlatformStats, error) {
	families, err := s.familyRepo.Count()
	if err != nil {
		return nil, err
	}
	children, lifetimePoints, err := s.childRepo.Totals()
	if err != nil {
		return nil, err
	}
	donationPoints, err := s.rewardRepo.SumDonationPoints()
	if err != nil {
		return nil, err
	}

	return &PlatformStats{
		TotalFamilies:       families,
		TotalChildren:       children,
		TotalLifetimePoints: lifetimePoints,
		DonationPoints:      donationPoints,
	}, nil
}

// RecentPayer is one row of the latest-payments list
type RecentPayer struct {
	FamilyName string  `json:"familyName"`
	Email      string  `json:"email"`
	Plan       *string `json:"plan"`
	Interval   *string `json:"interval"`
	PaidAt     string  `json:"paidAt"`
	PriceCents int     `json:"priceCents"`
}

// FinancialOverview is the revenue block of the dashboard. Money figures are
// in cents and come from the static plan price table, not the provider.
type FinancialOverview struct {
	ActiveSubscriptions   int           `json:"activeSubscriptions"`
	TotalRevenueCents     int           `json:"totalRevenueCents"`
	MonthlyRecurringCents int           `json:"monthlyRecurringCents"`
	AverageRevenueCents   int           `json:"averageRevenueCents"`
	MonthlyGrowthPercent  float64       `json:"monthlyGrowthPercent"`
	RecentPayers          []RecentPayer `json:"recentPayers"`
}

// Financials computes the revenue overview from active subscriptions.
// Monthly growth compares families whose last payment fell in the current
// calendar month against the previous one.
func (s *AdminService) Financials() (*FinancialOverview, error) {
	families, err := s.familyRepo.ListAll()
	if err != nil {
		return nil, err
	}

	overview := &FinancialOverview{RecentPayers: []RecentPayer{}}
	now := time.Now().UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	var payers []models.Family
	var paidThisMonth, paidLastMonth int

	for _, family := range families {
		if !family.HasActiveSubscription() || family.SubscriptionPlan == nil || family.SubscriptionInterval == nil {
			continue
		}
		price, ok := billing.PlanPrice(*family.SubscriptionPlan, *family.SubscriptionInterval)
		if !ok {
			continue
		}
		overview.ActiveSubscriptions++
		overview.TotalRevenueCents += price
		overview.MonthlyRecurringCents += billing.MonthlyValue(*family.SubscriptionPlan, *family.SubscriptionInterval)

		if family.SubscriptionLastPaymentAt != nil {
			payers = append(payers, family)
			paidAt := family.SubscriptionLastPaymentAt.UTC()
			switch {
			case !paidAt.Before(thisMonth):
				paidThisMonth++
			case !paidAt.Before(lastMonth):
				paidLastMonth++
			}
		}
	}

	if overview.ActiveSubscriptions > 0 {
		overview.AverageRevenueCents = overview.TotalRevenueCents / overview.ActiveSubscriptions
	}
	if paidLastMonth > 0 {
		overview.MonthlyGrowthPercent = float64(paidThisMonth-paidLastMonth) / float64(paidLastMonth) * 100
	} else if paidThisMonth > 0 {
		overview.MonthlyGrowthPercent = 100
	}

	sort.Slice(payers, func(i, j int) bool {
		return payers[i].SubscriptionLastPaymentAt.After(*payers[j].SubscriptionLastPaymentAt)
	})
	if len(payers) > 10 {
		payers = payers[:10]
	}
	for _, payer := range payers {
		price, _ := billing.PlanPrice(*payer.SubscriptionPlan, *payer.SubscriptionInterval)
		overview.RecentPayers = append(overview.RecentPayers, RecentPayer{
			FamilyName: payer.FamilyName,
			Email:      payer.Email,
			Plan:       payer.SubscriptionPlan,
			Interval:   payer.SubscriptionInterval,
			PaidAt:     formatTime(*payer.SubscriptionLastPaymentAt),
			PriceCents: price,
		})
	}
	return overview, nil
}

// RefreshSubscription re-reads a family's order from the billing provider
// and stores the provider's view of the subscription.
func (s *AdminService) RefreshSubscription(ctx context.Context, familyID string) error {
	if s.billing == nil {
		return ErrBillingUnavailable
	}
	family, err := s.familyRepo.GetByID(familyID)
	if err != nil {
		return fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return ErrFamilyNotFound
	}
	if family.SubscriptionOrderID == nil {
		return nil
	}

	order, err := s.billing.GetOrder(ctx, *family.SubscriptionOrderID)
	if errors.Is(err, billing.ErrOrderNotFound) {
		return s.familyRepo.UpdateSubscription(familyID, repository.SubscriptionUpdate{
			Status: models.SubscriptionCanceled,
		})
	}
	if err != nil {
		return err
	}

	return s.familyRepo.UpdateSubscription(familyID, repository.SubscriptionUpdate{
		Plan:          &order.Plan,
		Status:        mapOrderStatus(order.Status),
		Interval:      &order.Interval,
		RenewalDate:   order.RenewalDate,
		LastPaymentAt: order.PaidAt,
		OrderID:       family.SubscriptionOrderID,
	})
}

func mapOrderStatus(status string) string {
	switch status {
	case "active", "paid":
		return models.SubscriptionActive
	case "past_due", "unpaid":
		return models.SubscriptionPastDue
	case "canceled", "cancelled", "expired":
		return models.SubscriptionCanceled
	default:
		return models.SubscriptionInactive
	}
}
