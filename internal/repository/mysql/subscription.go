package mysql

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/streamkey/streamkey/internal/domain/subscription"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/mysql"
	"github.com/streamkey/streamkey/internal/types"
	"gorm.io/gorm"
)

// subscriptionRow is the database shape of a subscription record
type subscriptionRow struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	UserID             string    `gorm:"column:user_id;uniqueIndex"`
	PlanID             string    `gorm:"column:plan_id"`
	SubscriptionStatus string    `gorm:"column:subscription_status;index"`
	ExpiresAt          time.Time `gorm:"column:expires_at;index"`
	IsYearly           bool      `gorm:"column:is_yearly"`
	PreviousPlanID     *string   `gorm:"column:previous_plan_id"`
	PendingPlanID      *string   `gorm:"column:pending_plan_id"`
	Version            int       `gorm:"column:version"`
	Status             string    `gorm:"column:status"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
	CreatedBy          string    `gorm:"column:created_by"`
	UpdatedBy          string    `gorm:"column:updated_by"`
}

func (subscriptionRow) TableName() string {
	return "subscriptions"
}

func toRow(s *subscription.Subscription) *subscriptionRow {
	return &subscriptionRow{
		ID:                 s.ID,
		UserID:             s.UserID,
		PlanID:             s.PlanID.String(),
		SubscriptionStatus: string(s.SubscriptionStatus),
		ExpiresAt:          s.ExpiresAt,
		IsYearly:           s.IsYearly,
		PreviousPlanID:     planIDPtrToString(s.PreviousPlanID),
		PendingPlanID:      planIDPtrToString(s.PendingPlanID),
		Version:            s.Version,
		Status:             string(s.BaseModel.Status),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		CreatedBy:          s.CreatedBy,
		UpdatedBy:          s.UpdatedBy,
	}
}

func fromRow(r *subscriptionRow) *subscription.Subscription {
	if r == nil {
		return nil
	}
	return &subscription.Subscription{
		ID:                 r.ID,
		UserID:             r.UserID,
		PlanID:             types.PlanID(r.PlanID),
		SubscriptionStatus: types.SubscriptionStatus(r.SubscriptionStatus),
		ExpiresAt:          r.ExpiresAt.UTC(),
		IsYearly:           r.IsYearly,
		PreviousPlanID:     stringPtrToPlanID(r.PreviousPlanID),
		PendingPlanID:      stringPtrToPlanID(r.PendingPlanID),
		Version:            r.Version,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

func planIDPtrToString(p *types.PlanID) *string {
	if p == nil {
		return nil
	}
	return lo.ToPtr(p.String())
}

func stringPtrToPlanID(s *string) *types.PlanID {
	if s == nil {
		return nil
	}
	return lo.ToPtr(types.PlanID(*s))
}

type subscriptionRepository struct {
	client mysql.IClient
	logger *logger.Logger
}

// NewSubscriptionRepository creates the MySQL-backed subscription store
func NewSubscriptionRepository(client mysql.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{client: client, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	if err := r.client.DB(ctx).Create(toRow(sub)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ierr.WithError(err).
				WithHint("A subscription already exists for this user").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var row subscriptionRow
	err := r.client.DB(ctx).Where("id = ? AND status = ?", id, string(types.StatusPublished)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewErrorf("subscription %s not found", id).
				WithHint("Subscription not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return fromRow(&row), nil
}

func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID string) (*subscription.Subscription, error) {
	var row subscriptionRow
	err := r.client.DB(ctx).Where("user_id = ? AND status = ?", userID, string(types.StatusPublished)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewErrorf("no subscription for user %s", userID).
				WithHint("Subscription not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return fromRow(&row), nil
}

// Update commits the subscription with a compare-and-set on version.
// The caller's in-memory version is bumped on success so a subsequent
// Update from the same snapshot conflicts as expected.
func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	row := toRow(sub)
	row.Version = sub.Version + 1
	row.UpdatedAt = time.Now().UTC()

	res := r.client.DB(ctx).
		Model(&subscriptionRow{}).
		Where("id = ? AND version = ?", sub.ID, sub.Version).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(row)
	if res.Error != nil {
		return ierr.WithError(res.Error).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewErrorf("stale write on subscription %s", sub.ID).
			WithHint("The subscription was modified concurrently, please retry").
			Mark(ierr.ErrVersionConflict)
	}

	sub.Version = row.Version
	sub.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	var rows []subscriptionRow
	q := r.applyFilter(r.client.DB(ctx).Model(&subscriptionRow{}), filter).Order("expires_at asc")

	if filter != nil && !filter.IsUnlimited() {
		q = q.Limit(filter.GetLimit()).Offset(filter.GetOffset())
	}

	if err := q.Find(&rows).Error; err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}

	return lo.Map(rows, func(row subscriptionRow, _ int) *subscription.Subscription {
		return fromRow(&row)
	}), nil
}

func (r *subscriptionRepository) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	var count int64
	if err := r.applyFilter(r.client.DB(ctx).Model(&subscriptionRow{}), filter).Count(&count).Error; err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return int(count), nil
}

func (r *subscriptionRepository) applyFilter(q *gorm.DB, filter *types.SubscriptionFilter) *gorm.DB {
	q = q.Where("status = ?", string(types.StatusPublished))
	if filter == nil {
		return q
	}
	if len(filter.SubscriptionStatus) > 0 {
		statuses := lo.Map(filter.SubscriptionStatus, func(s types.SubscriptionStatus, _ int) string {
			return string(s)
		})
		q = q.Where("subscription_status IN ?", statuses)
	}
	if filter.PlanID != nil {
		q = q.Where("plan_id = ?", filter.PlanID.String())
	}
	if filter.ExpiringBefore != nil {
		q = q.Where("expires_at <= ?", *filter.ExpiringBefore)
	}
	return q
}
