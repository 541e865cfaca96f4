package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/nohand/models"
)

// GormStore keeps users and check-ins in a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an initialized gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get returns the record for (userID, date) or nil when absent.
func (s *GormStore) Get(ctx context.Context, userID uint, date string) (*models.CheckinRecord, error) {
	var rec models.CheckinRecord
	err := s.db.WithContext(ctx).Where("user_id = ? AND checkin_date = ?", userID, date).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert appends rec unless a record already exists for its (user, date) key.
// The existence check and the write are a single statement.
func (s *GormStore) Insert(ctx context.Context, rec *models.CheckinRecord) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrUniqueViolation
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUniqueViolation
	}
	return nil
}

// ListByUser returns every record of a user, newest first.
func (s *GormStore) ListByUser(ctx context.Context, userID uint) ([]models.CheckinRecord, error) {
	var recs []models.CheckinRecord
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("checkin_date DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// ListAllUsers returns every user ordered by username.
func (s *GormStore) ListAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UserExists reports whether a user with the given id exists.
func (s *GormStore) UserExists(ctx context.Context, userID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LatestPerUser returns the most recent record of every user that has one.
func (s *GormStore) LatestPerUser(ctx context.Context) (map[uint]models.CheckinRecord, error) {
	latest := s.db.Model(&models.CheckinRecord{}).
		Select("user_id, MAX(checkin_date) AS checkin_date").
		Group("user_id")

	var recs []models.CheckinRecord
	err := s.db.WithContext(ctx).
		Table("checkins AS c").
		Select("c.*").
		Joins("JOIN (?) AS m ON c.user_id = m.user_id AND c.checkin_date = m.checkin_date", latest).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint]models.CheckinRecord, len(recs))
	for _, r := range recs {
		out[r.UserID] = r
	}
	return out, nil
}

// WipeAll deletes every check-in and every user.
func (s *GormStore) WipeAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.CheckinRecord{}).Error; err != nil {
			return err
		}
		return all.Delete(&models.User{}).Error
	})
}

// CreateUser inserts a new user, failing with ErrUniqueViolation on a taken username.
func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrUniqueViolation
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUniqueViolation
	}
	return nil
}

// FindUserByID loads a user by primary key.
func (s *GormStore) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByUsername loads a user by exact username.
func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Stats counts users and check-ins.
func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&st.Users).Error; err != nil {
		return Stats{}, err
	}
	if err := db.Model(&models.CheckinRecord{}).Count(&st.Checkins).Error; err != nil {
		return Stats{}, err
	}
	return st, nil
}
