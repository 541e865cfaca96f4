package streak

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/nohand/models"
)

func rec(userID uint, date string, status models.Status) models.CheckinRecord {
	return models.CheckinRecord{UserID: userID, CheckinDate: date, Status: status}
}

func TestCurrentStreak(t *testing.T) {
	neg, pos := models.StatusNegative, models.StatusPositive

	cases := []struct {
		name    string
		history []models.CheckinRecord
		want    int
	}{
		{"empty", nil, 0},
		{"single negative", []models.CheckinRecord{rec(1, "2024-03-05", neg)}, 1},
		{"latest positive", []models.CheckinRecord{rec(1, "2024-03-05", pos), rec(1, "2024-03-04", neg)}, 0},
		{
			"breaks at positive",
			[]models.CheckinRecord{
				rec(1, "2024-03-05", neg),
				rec(1, "2024-03-04", neg),
				rec(1, "2024-03-03", neg),
				rec(1, "2024-03-02", pos),
				rec(1, "2024-03-01", neg),
			},
			3,
		},
		{"gap breaks", []models.CheckinRecord{rec(1, "2024-03-05", neg), rec(1, "2024-03-03", neg)}, 1},
		{
			"across month and leap day",
			[]models.CheckinRecord{
				rec(1, "2024-03-01", neg),
				rec(1, "2024-02-29", neg),
				rec(1, "2024-02-28", neg),
			},
			3,
		},
		{
			"across year",
			[]models.CheckinRecord{rec(1, "2025-01-01", neg), rec(1, "2024-12-31", neg)},
			2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CurrentStreak(tc.history))
		})
	}
}

func TestComputeLeaderboardBuckets(t *testing.T) {
	neg, pos := models.StatusNegative, models.StatusPositive
	histories := map[uint][]models.CheckinRecord{
		1: {rec(1, "2024-03-10", neg), rec(1, "2024-03-09", neg), rec(1, "2024-03-08", neg), rec(1, "2024-03-07", neg)},
		2: {
			rec(2, "2024-03-10", neg), rec(2, "2024-03-09", neg), rec(2, "2024-03-08", neg), rec(2, "2024-03-07", neg),
			rec(2, "2024-03-06", neg), rec(2, "2024-03-05", neg), rec(2, "2024-03-04", neg),
		},
		3: {rec(3, "2024-03-10", pos), rec(3, "2024-03-09", neg)},
	}
	latest := []models.LatestCheckin{
		{User: models.User{ID: 4, Username: "D"}},
		{User: models.User{ID: 3, Username: "C"}, Record: &histories[3][0]},
		{User: models.User{ID: 1, Username: "A"}, Record: &histories[1][0]},
		{User: models.User{ID: 2, Username: "B"}, Record: &histories[2][0]},
	}

	entries, err := ComputeLeaderboard(latest, func(id uint) ([]models.CheckinRecord, error) {
		return histories[id], nil
	})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	var names []string
	for _, e := range entries {
		names = append(names, e.Username)
	}
	assert.Equal(t, []string{"B", "A", "C", "D"}, names)
	assert.Equal(t, 7, entries[0].Days)
	assert.Equal(t, 4, entries[1].Days)
	assert.Equal(t, 0, entries[2].Days)
	assert.Equal(t, models.StatusNone, entries[3].Status)
	assert.Nil(t, entries[3].LastDate)
	require.NotNil(t, entries[2].LastDate)
	assert.Equal(t, "2024-03-10", *entries[2].LastDate)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestComputeLeaderboardTieBreak(t *testing.T) {
	neg := models.StatusNegative
	r1 := rec(1, "2024-03-10", neg)
	r2 := rec(2, "2024-03-10", neg)
	latest := []models.LatestCheckin{
		{User: models.User{ID: 1, Username: "zoe"}, Record: &r1},
		{User: models.User{ID: 2, Username: "amy"}, Record: &r2},
		{User: models.User{ID: 3, Username: "carl"}},
		{User: models.User{ID: 4, Username: "bob"}},
	}
	history := func(id uint) ([]models.CheckinRecord, error) {
		if id == 1 {
			return []models.CheckinRecord{r1}, nil
		}
		return []models.CheckinRecord{r2}, nil
	}

	first, err := ComputeLeaderboard(latest, history)
	require.NoError(t, err)
	second, err := ComputeLeaderboard(latest, history)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "amy", first[0].Username)
	assert.Equal(t, "zoe", first[1].Username)
	assert.Equal(t, "bob", first[2].Username)
	assert.Equal(t, "carl", first[3].Username)
}

func TestComputeLeaderboardSkipsHistoryForNonNegative(t *testing.T) {
	r := rec(1, "2024-03-10", models.StatusPositive)
	latest := []models.LatestCheckin{
		{User: models.User{ID: 1, Username: "a"}, Record: &r},
		{User: models.User{ID: 2, Username: "b"}},
	}
	entries, err := ComputeLeaderboard(latest, func(uint) ([]models.CheckinRecord, error) {
		t.Fatal("history must not be fetched")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestComputeLeaderboardHistoryError(t *testing.T) {
	boom := errors.New("store down")
	r := rec(1, "2024-03-10", models.StatusNegative)
	latest := []models.LatestCheckin{{User: models.User{ID: 1, Username: "a"}, Record: &r}}

	_, err := ComputeLeaderboard(latest, func(uint) ([]models.CheckinRecord, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
