package repos

import (
	"context"
	"testing"
	"time"

	"github.com/miyahealth/miya-backend/internal/types"
	"github.com/miyahealth/miya-backend/internal/vitality"
)

func TestExerciseFetchDays(t *testing.T) {
	db := openTestDB(t)
	repo := NewExerciseSessionRepo(db, testLogger())
	user := seedUser(t, db, "member@example.com")
	other := seedUser(t, db, "other@example.com")
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []*types.ExerciseSession{
		{UserID: user.ID, Day: base, ActivityType: "run", DurationMinutes: 40},
		// Two sessions on the same day collapse to one day entry.
		{UserID: user.ID, Day: base, ActivityType: "swim", DurationMinutes: 30},
		{UserID: user.ID, Day: vitality.AddDays(base, 3), ActivityType: "bike", DurationMinutes: 60},
		// Outside the fetch window.
		{UserID: user.ID, Day: vitality.AddDays(base, 9), ActivityType: "run", DurationMinutes: 20},
		{UserID: other.ID, Day: base, ActivityType: "run", DurationMinutes: 20},
	}
	if err := repo.Create(ctx, nil, rows); err != nil {
		t.Fatalf("create: %v", err)
	}

	days, err := repo.FetchDays(ctx, nil, user.ID, base, vitality.AddDays(base, 5))
	if err != nil {
		t.Fatalf("fetch days: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("len=%d, want 2", len(days))
	}
	if !days[base] || !days[vitality.AddDays(base, 3)] {
		t.Fatalf("missing expected days: %v", days)
	}
}
