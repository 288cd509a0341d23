package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func selfRights() Rights {
	return Rights{ChangeUsername: true, ChangeAbout: true, ChangeAvatar: true}
}

func TestProfileEditSelf(t *testing.T) {
	actor := Identity{ID: 2, Rights: selfRights()}

	v := EvaluateProfileEdit(actor, ProfileState{}, 2, ProfileEdit{Username: true, About: true, Avatar: true, Password: true}, now)
	assert.Equal(t, ProfileAllowed, v.Code)

	// each field needs its own flag
	bare := Identity{ID: 2}
	assert.Equal(t, ProfileForbidden, EvaluateProfileEdit(bare, ProfileState{}, 2, ProfileEdit{Username: true}, now).Code)
	assert.Equal(t, ProfileForbidden, EvaluateProfileEdit(bare, ProfileState{}, 2, ProfileEdit{About: true}, now).Code)
	assert.Equal(t, ProfileForbidden, EvaluateProfileEdit(bare, ProfileState{}, 2, ProfileEdit{Avatar: true}, now).Code)

	// grade is admin-only even on the own account
	assert.Equal(t, ProfileForbidden, EvaluateProfileEdit(actor, ProfileState{}, 2, ProfileEdit{Grade: true}, now).Code)
	admin := Identity{ID: 2, Admin: true}
	assert.Equal(t, ProfileAllowed, EvaluateProfileEdit(admin, ProfileState{}, 2, ProfileEdit{Grade: true}, now).Code)

	// self-mute is malformed input, not a rights problem
	assert.Equal(t, ProfileBadRequest, EvaluateProfileEdit(actor, ProfileState{}, 2, ProfileEdit{Mute: true}, now).Code)

	// a muted account cannot edit itself
	assert.Equal(t, ProfileForbidden, EvaluateProfileEdit(muted(actor), ProfileState{}, 2, ProfileEdit{About: true}, now).Code)
}

func TestProfileEditCooldowns(t *testing.T) {
	actor := Identity{ID: 2, Rights: selfRights()}

	recent := now.Add(-time.Minute)
	old := now.Add(-31 * 24 * time.Hour)

	v := EvaluateProfileEdit(actor, ProfileState{LastUsernameReset: &recent}, 2, ProfileEdit{Username: true}, now)
	assert.Equal(t, ProfileCooldown, v.Code)
	assert.Equal(t, recent.Add(UsernameResetCooldown), v.RetryAt)

	v = EvaluateProfileEdit(actor, ProfileState{LastUsernameReset: &old}, 2, ProfileEdit{Username: true}, now)
	assert.Equal(t, ProfileAllowed, v.Code)

	v = EvaluateProfileEdit(actor, ProfileState{LastPasswordReset: &recent}, 2, ProfileEdit{Password: true}, now)
	assert.Equal(t, ProfileCooldown, v.Code)
	assert.Equal(t, recent.Add(PasswordResetCooldown), v.RetryAt)

	sixMinutes := now.Add(-6 * time.Minute)
	v = EvaluateProfileEdit(actor, ProfileState{LastPasswordReset: &sixMinutes}, 2, ProfileEdit{Password: true}, now)
	assert.Equal(t, ProfileAllowed, v.Code)

	// admins skip their own cooldowns
	admin := Identity{ID: 2, Admin: true}
	v = EvaluateProfileEdit(admin, ProfileState{LastUsernameReset: &recent}, 2, ProfileEdit{Username: true}, now)
	assert.Equal(t, ProfileAllowed, v.Code)
}

func TestProfileEditThirdParty(t *testing.T) {
	moderator := Identity{ID: 3, Rights: Rights{MuteUsers: true}}

	assert.Equal(t, ProfileAllowed, EvaluateProfileEdit(moderator, ProfileState{}, 2, ProfileEdit{Mute: true}, now).Code)
	assert.Equal(t, ProfileForbidden, EvaluateProfileEdit(Identity{ID: 3}, ProfileState{}, 2, ProfileEdit{Mute: true}, now).Code)

	// anything besides a mute is off limits without admin
	v := EvaluateProfileEdit(moderator, ProfileState{}, 2, ProfileEdit{About: true, Mute: true}, now)
	assert.Equal(t, ProfileForbidden, v.Code)

	// admins edit everything except passwords
	admin := Identity{ID: 1, Admin: true}
	assert.Equal(t, ProfileAllowed, EvaluateProfileEdit(admin, ProfileState{}, 2, ProfileEdit{Username: true, Grade: true, Mute: true}, now).Code)
	assert.Equal(t, ProfileForbidden, EvaluateProfileEdit(admin, ProfileState{}, 2, ProfileEdit{Password: true}, now).Code)
}
