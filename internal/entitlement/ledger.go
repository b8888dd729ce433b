package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lettersontherocks/AI-Interview/internal/metrics"
	"github.com/lettersontherocks/AI-Interview/internal/models"
)

var (
	ErrQuotaExhausted      = errors.New("quota exhausted")
	ErrNotAuthenticated    = errors.New("user not authenticated")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationReleased = errors.New("reservation already released")
	ErrInvalidTier         = errors.New("invalid vip tier")
)

const dayLayout = "2006-01-02"

// Unlimited is the DailyLimit reported for tiers without a daily cap.
const Unlimited = -1

type Limits struct {
	FreeDaily   int
	NormalDaily int
}

// Status is an entitlement row after rollover, with the tier that actually applies today.
type Status struct {
	models.Entitlement
	Tier       string
	IsVIP      bool
	DailyLimit int
}

// Ledger owns the per-user quota rows. Every mutation is a conditional update
// so concurrent starts for one user cannot both pass the same check.
type Ledger struct {
	db     *gorm.DB
	limits Limits
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewLedger(db *gorm.DB, limits Limits, loc *time.Location, logger *zap.Logger) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{db: db, limits: limits, loc: loc, now: time.Now, logger: logger}
}

// SetClock replaces the time source.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

func (l *Ledger) today() string {
	return l.now().In(l.loc).Format(dayLayout)
}

// Open creates the entitlement row for a new user. Existing rows are left as they are.
func (l *Ledger) Open(ctx context.Context, userID string) error {
	ent := models.Entitlement{
		UserID:        userID,
		VipTier:       models.TierNone,
		LastResetDate: l.today(),
	}
	return l.db.WithContext(ctx).
		Where(models.Entitlement{UserID: userID}).
		FirstOrCreate(&ent).Error
}

// Get returns the user's status, applying the daily rollover first.
func (l *Ledger) Get(ctx context.Context, userID string) (*Status, error) {
	var status *Status
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ent, err := l.load(tx, userID)
		if err != nil {
			return err
		}
		status = l.status(ent)
		return nil
	})
	return status, err
}

// load reads the row and lazily resets the daily counter when the ledger day has changed.
func (l *Ledger) load(tx *gorm.DB, userID string) (*models.Entitlement, error) {
	var ent models.Entitlement
	if err := tx.First(&ent, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}

	today := l.today()
	if ent.LastResetDate != today {
		err := tx.Model(&models.Entitlement{}).
			Where("user_id = ? AND last_reset_date <> ?", userID, today).
			UpdateColumns(map[string]interface{}{"free_count_today": 0, "last_reset_date": today}).Error
		if err != nil {
			return nil, err
		}
		if err := tx.First(&ent, "user_id = ?", userID).Error; err != nil {
			return nil, err
		}
	}
	return &ent, nil
}

func (l *Ledger) status(ent *models.Entitlement) *Status {
	tier := l.effectiveTier(ent)
	return &Status{
		Entitlement: *ent,
		Tier:        tier,
		IsVIP:       tier != models.TierNone,
		DailyLimit:  l.dailyLimit(tier),
	}
}

// effectiveTier treats an expired VIP as no VIP.
func (l *Ledger) effectiveTier(ent *models.Entitlement) string {
	switch ent.VipTier {
	case models.TierNormal, models.TierSuper:
		if ent.VipExpireDate != nil && ent.VipExpireDate.After(l.now()) {
			return ent.VipTier
		}
	}
	return models.TierNone
}

func (l *Ledger) dailyLimit(tier string) int {
	switch tier {
	case models.TierSuper:
		return Unlimited
	case models.TierNormal:
		return l.limits.NormalDaily
	default:
		return l.limits.FreeDaily
	}
}

// CheckAndReserve admits one session start. Sources are tried in order: unlimited
// tier, the daily allowance, then extra credits.
func (l *Ledger) CheckAndReserve(ctx context.Context, userID string) (*models.Reservation, error) {
	var reservation *models.Reservation
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ent, err := l.load(tx, userID)
		if err != nil {
			return err
		}

		source, err := l.take(tx, ent)
		if err != nil {
			return err
		}

		now := l.now()
		reservation = &models.Reservation{
			ID:        uuid.New().String(),
			UserID:    userID,
			Source:    source,
			Status:    models.ReservationReserved,
			Day:       ent.LastResetDate,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Create(reservation).Error
	})
	if err != nil {
		if errors.Is(err, ErrQuotaExhausted) {
			metrics.QuotaDenials.WithLabelValues("quota_exhausted").Inc()
			l.logger.Info("Session start denied", zap.String("user_id", userID), zap.Error(err))
		} else if errors.Is(err, ErrNotAuthenticated) {
			metrics.QuotaDenials.WithLabelValues("not_authenticated").Inc()
		}
		return nil, err
	}
	return reservation, nil
}

func (l *Ledger) take(tx *gorm.DB, ent *models.Entitlement) (string, error) {
	tier := l.effectiveTier(ent)
	if tier == models.TierSuper {
		return models.ReservationSourceUnlimited, nil
	}

	res := tx.Model(&models.Entitlement{}).
		Where("user_id = ? AND last_reset_date = ? AND free_count_today < ?", ent.UserID, ent.LastResetDate, l.dailyLimit(tier)).
		UpdateColumn("free_count_today", gorm.Expr("free_count_today + 1"))
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 1 {
		return models.ReservationSourceDaily, nil
	}

	res = tx.Model(&models.Entitlement{}).
		Where("user_id = ? AND extra_credits > 0", ent.UserID).
		UpdateColumn("extra_credits", gorm.Expr("extra_credits - 1"))
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 1 {
		return models.ReservationSourceCredit, nil
	}
	return "", ErrQuotaExhausted
}

// Commit marks the reservation as consumed by a delivered first question.
func (l *Ledger) Commit(ctx context.Context, reservationID string) error {
	res := l.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("id = ? AND status = ?", reservationID, models.ReservationReserved).
		Updates(map[string]interface{}{"status": models.ReservationCommitted, "updated_at": l.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var existing models.Reservation
	if err := l.db.WithContext(ctx).First(&existing, "id = ?", reservationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReservationNotFound
		}
		return err
	}
	if existing.Status == models.ReservationReleased {
		return ErrReservationReleased
	}
	return nil
}

// Release gives back a reservation that never produced a question. Releasing
// twice, or releasing a committed reservation, is a no-op.
func (l *Ledger) Release(ctx context.Context, reservationID string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reservation models.Reservation
		if err := tx.First(&reservation, "id = ?", reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		res := tx.Model(&models.Reservation{}).
			Where("id = ? AND status = ?", reservationID, models.ReservationReserved).
			Updates(map[string]interface{}{"status": models.ReservationReleased, "updated_at": l.now()})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}

		switch reservation.Source {
		case models.ReservationSourceDaily:
			// a counter that already rolled over has nothing to give back
			return tx.Model(&models.Entitlement{}).
				Where("user_id = ? AND last_reset_date = ? AND free_count_today > 0", reservation.UserID, reservation.Day).
				UpdateColumn("free_count_today", gorm.Expr("free_count_today - 1")).Error
		case models.ReservationSourceCredit:
			return tx.Model(&models.Entitlement{}).
				Where("user_id = ?", reservation.UserID).
				UpdateColumn("extra_credits", gorm.Expr("extra_credits + 1")).Error
		}
		return nil
	})
}

// Stale lists reservations still open that were created before cutoff.
func (l *Ledger) Stale(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	reservations := []models.Reservation{}
	err := l.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.ReservationReserved, cutoff).
		Order("created_at ASC").
		Find(&reservations).Error
	return reservations, err
}

// ApplyPurchase replaces the user's tier and expiry.
func (l *Ledger) ApplyPurchase(ctx context.Context, userID, tier string, expiry time.Time) error {
	switch tier {
	case models.TierNone, models.TierNormal, models.TierSuper:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}

	res := l.db.WithContext(ctx).Model(&models.Entitlement{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"vip_tier": tier, "vip_expire_date": expiry, "updated_at": l.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotAuthenticated
	}
	l.logger.Info("VIP tier applied",
		zap.String("user_id", userID),
		zap.String("tier", tier),
		zap.Time("expires_at", expiry))
	return nil
}

// AddCredits grants single-use interview credits.
func (l *Ledger) AddCredits(ctx context.Context, userID string, n int) error {
	if n <= 0 {
		return fmt.Errorf("credits must be positive, got %d", n)
	}
	res := l.db.WithContext(ctx).Model(&models.Entitlement{}).
		Where("user_id = ?", userID).
		UpdateColumn("extra_credits", gorm.Expr("extra_credits + ?", n))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotAuthenticated
	}
	return nil
}

// ExtendExpiry returns the expiry after buying days of tier: purchases of the
// tier already active stack on the current expiry, anything else starts now.
func (l *Ledger) ExtendExpiry(status *Status, tier string, days int) time.Time {
	start := l.now()
	if status != nil && status.Tier == tier && status.VipExpireDate != nil && status.VipExpireDate.After(start) {
		start = *status.VipExpireDate
	}
	return start.AddDate(0, 0, days)
}
