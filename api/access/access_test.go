package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func muted(id Identity) Identity {
	until := now.Add(time.Hour)
	id.MuteUntil = &until
	return id
}

func TestCanEditMod(t *testing.T) {
	admin := Identity{ID: 1, Admin: true}
	selfEditor := Identity{ID: 2, Rights: Rights{ChangeSelfMods: true}}
	moderator := Identity{ID: 3, Rights: Rights{ChangeMods: true}}
	nobody := Identity{ID: 4}

	tests := []struct {
		name       string
		actor      Identity
		membership Membership
		want       bool
	}{
		{"admin always", admin, MembershipNone, true},
		{"admin while author", admin, MembershipMember, true},
		{"owner with self flag", selfEditor, MembershipOwner, true},
		{"member with self flag", selfEditor, MembershipMember, false},
		{"owner without self flag", nobody, MembershipOwner, false},
		{"outsider with change flag", moderator, MembershipNone, true},
		{"outsider without change flag", nobody, MembershipNone, false},
		// the generic flag must not leak through an authorship row
		{"member with change flag only", moderator, MembershipMember, false},
		{"muted admin still allowed", muted(admin), MembershipNone, true},
		{"muted owner denied", muted(selfEditor), MembershipOwner, false},
		{"muted moderator denied", muted(moderator), MembershipNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanEditMod(tt.actor, tt.membership, now))
		})
	}
}

func TestCanDeleteMod(t *testing.T) {
	deleter := Identity{ID: 2, Rights: Rights{DeleteSelfMods: true}}

	assert.True(t, CanDeleteMod(deleter, MembershipOwner, now))
	assert.False(t, CanDeleteMod(deleter, MembershipMember, now))
	assert.False(t, CanDeleteMod(deleter, MembershipNone, now))
	assert.True(t, CanDeleteMod(Identity{Rights: Rights{DeleteMods: true}}, MembershipNone, now))
	assert.False(t, CanDeleteMod(muted(deleter), MembershipOwner, now))
}

func TestCanReadMod(t *testing.T) {
	member := Identity{ID: 2}
	admin := Identity{ID: 3, Admin: true}

	// public levels are readable by anyone, including anonymous
	assert.True(t, CanReadMod(nil, ModFacts{Publicity: PublicityCataloged}))
	assert.True(t, CanReadMod(nil, ModFacts{Publicity: PublicityUnlisted}))
	assert.False(t, CanReadMod(nil, ModFacts{Publicity: PublicityRestricted}))

	// restricted needs admin or any authorship row
	assert.True(t, CanReadMod(&admin, ModFacts{Publicity: PublicityRestricted}))
	assert.True(t, CanReadMod(&member, ModFacts{Publicity: PublicityRestricted, Membership: MembershipMember}))
	assert.True(t, CanReadMod(&member, ModFacts{Publicity: PublicityRestricted, Membership: MembershipOwner}))
	assert.False(t, CanReadMod(&member, ModFacts{Publicity: PublicityRestricted}))

	// mute never blocks reads
	mutedMember := muted(member)
	assert.True(t, CanReadMod(&mutedMember, ModFacts{Publicity: PublicityRestricted, Membership: MembershipMember}))

	// the generic change flag does not grant read
	moderator := Identity{ID: 4, Rights: Rights{ChangeMods: true, DeleteMods: true}}
	assert.False(t, CanReadMod(&moderator, ModFacts{Publicity: PublicityRestricted}))
}

func TestCanPublishMod(t *testing.T) {
	publisher := Identity{ID: 2, Rights: Rights{PublishMods: true}}

	assert.True(t, CanPublishMod(publisher, now))
	assert.False(t, CanPublishMod(Identity{ID: 2}, now))
	assert.False(t, CanPublishMod(muted(publisher), now))
	assert.True(t, CanPublishMod(muted(Identity{Admin: true}), now))
}

func TestFilterMods(t *testing.T) {
	actor := Identity{ID: 2, Rights: Rights{ChangeSelfMods: true}}
	mods := []ModFacts{
		{ID: 10, Publicity: PublicityCataloged},
		{ID: 11, Publicity: PublicityRestricted},
		{ID: 12, Publicity: PublicityRestricted, Membership: MembershipMember},
		{ID: 13, Publicity: PublicityCataloged, Membership: MembershipOwner},
	}

	assert.Equal(t, []int64{10, 12, 13}, FilterMods(&actor, mods, false, now))
	assert.Equal(t, []int64{13}, FilterMods(&actor, mods, true, now))

	// anonymous: readable publics only, never editable
	assert.Equal(t, []int64{10, 13}, FilterMods(nil, mods, false, now))
	assert.Empty(t, FilterMods(nil, mods, true, now))

	assert.Empty(t, FilterMods(&actor, nil, false, now))
}

func TestCanTransferAuthorship(t *testing.T) {
	owner := Identity{ID: 2}
	member := Identity{ID: 3}
	outsider := Identity{ID: 4, Rights: Rights{ChangeAuthorshipMods: true}}

	// owners manage the roster but cannot orphan the mod
	assert.True(t, CanTransferAuthorship(owner, MembershipOwner, TransferRequest{Target: 5, Adding: true}, now))
	assert.True(t, CanTransferAuthorship(owner, MembershipOwner, TransferRequest{Target: 5, Adding: false}, now))
	assert.False(t, CanTransferAuthorship(owner, MembershipOwner, TransferRequest{Target: 2, Adding: false}, now))
	assert.True(t, CanTransferAuthorship(owner, MembershipOwner, TransferRequest{Target: 2, Adding: true}, now))

	// members may only remove themselves
	assert.True(t, CanTransferAuthorship(member, MembershipMember, TransferRequest{Target: 3, Adding: false}, now))
	assert.False(t, CanTransferAuthorship(member, MembershipMember, TransferRequest{Target: 3, Adding: true}, now))
	assert.False(t, CanTransferAuthorship(member, MembershipMember, TransferRequest{Target: 5, Adding: false}, now))

	// outsiders need the flag
	assert.True(t, CanTransferAuthorship(outsider, MembershipNone, TransferRequest{Target: 5, Adding: true}, now))
	assert.False(t, CanTransferAuthorship(Identity{ID: 4}, MembershipNone, TransferRequest{Target: 5, Adding: true}, now))

	// mute blocks, admin overrides everything
	assert.False(t, CanTransferAuthorship(muted(outsider), MembershipNone, TransferRequest{Target: 5, Adding: true}, now))
	assert.True(t, CanTransferAuthorship(Identity{ID: 1, Admin: true}, MembershipNone, TransferRequest{Target: 5, Adding: false}, now))
}
