package repos

import (
	"context"
	"testing"

	"github.com/miyahealth/miya-backend/internal/types"
)

func TestResolveRecipientsFiltersDisabledLinks(t *testing.T) {
	db := openTestDB(t)
	repo := NewCaregiverLinkRepo(db, testLogger())
	users := seedUsers(t, db, 4)
	member, active, muted, outsider := users[0], users[1], users[2], users[3]
	ctx := context.Background()

	links := []*types.CaregiverLink{
		{MemberID: member.ID, CaregiverID: active.ID, Relationship: "daughter", NotifyEnabled: true},
		{MemberID: member.ID, CaregiverID: muted.ID, Relationship: "son", NotifyEnabled: false},
		{MemberID: outsider.ID, CaregiverID: active.ID, Relationship: "friend", NotifyEnabled: true},
	}
	if err := repo.Create(ctx, nil, links); err != nil {
		t.Fatalf("create links: %v", err)
	}

	got, err := repo.ResolveRecipients(ctx, nil, member.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || got[0] != active.ID {
		t.Fatalf("recipients=%v, want [%s]", got, active.ID)
	}

	none, err := repo.ResolveRecipients(ctx, nil, muted.ID)
	if err != nil {
		t.Fatalf("resolve no-links member: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("recipients=%v, want none", none)
	}
}
