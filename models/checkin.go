package models

import "time"

// DateLayout is the storage format of a calendar date.
const DateLayout = "2006-01-02"

// Status is the daily binary answer of a member.
type Status string

const (
	// StatusNegative means the member did not do the thing today.
	StatusNegative Status = "negative"
	// StatusPositive means the member did the thing today.
	StatusPositive Status = "positive"
	// StatusNone marks a member without any record. It is never recordable.
	StatusNone Status = "none"
)

// Valid reports whether s may be recorded.
func (s Status) Valid() bool {
	return s == StatusNegative || s == StatusPositive
}

// CheckinRecord stores one member's status for one calendar day.
type CheckinRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex:idx_checkins_user_date;not null" json:"user_id"`
	CheckinDate string    `gorm:"uniqueIndex:idx_checkins_user_date;size:10;not null" json:"checkin_date"`
	Status      Status    `gorm:"size:16;not null" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName keeps the historical table name.
func (CheckinRecord) TableName() string {
	return "checkins"
}

// Date returns the calendar date of the record at UTC midnight.
func (c CheckinRecord) Date() (time.Time, error) {
	return ParseDate(c.CheckinDate)
}

// LatestCheckin pairs a user with their most recent record, if any.
type LatestCheckin struct {
	User   User
	Record *CheckinRecord
}

// FormatDate renders the calendar date of t in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a stored calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DayBefore reports whether earlier is exactly one calendar day before later.
func DayBefore(earlier, later string) bool {
	l, err := ParseDate(later)
	if err != nil {
		return false
	}
	return FormatDate(l.AddDate(0, 0, -1)) == earlier
}
