package access

import (
	"time"
)

// Cooldowns applied to self-service profile edits.
const (
	UsernameResetCooldown = 30 * 24 * time.Hour
	PasswordResetCooldown = 5 * time.Minute
)

// ProfileEdit lists which profile fields a request is trying to change.
type ProfileEdit struct {
	Username bool
	About    bool
	Avatar   bool
	Grade    bool
	Password bool
	Mute     bool
}

// ProfileState carries the cooldown anchors of the acting account.
type ProfileState struct {
	LastUsernameReset *time.Time
	LastPasswordReset *time.Time
}

// ProfileCode classifies a profile edit verdict.
type ProfileCode int

const (
	ProfileAllowed ProfileCode = iota
	ProfileForbidden
	ProfileCooldown
	ProfileBadRequest
)

// ProfileVerdict is the outcome of EvaluateProfileEdit. RetryAt is set for
// ProfileCooldown and names the moment the edit becomes possible again.
type ProfileVerdict struct {
	Code    ProfileCode
	Reason  string
	RetryAt time.Time
}

func profileForbidden(reason string) ProfileVerdict {
	return ProfileVerdict{Code: ProfileForbidden, Reason: reason}
}

// EvaluateProfileEdit applies the profile mutation policy.
//
// Self-edits are gated by per-field flags, mute state and cooldowns; admins
// edit anyone's fields except passwords; a third party may only ever apply
// a mute, and only with the mute_users right. Grade is admin-only for every
// target, the actor's own account included.
func EvaluateProfileEdit(actor Identity, state ProfileState, targetID int64, edit ProfileEdit, now time.Time) ProfileVerdict {
	if actor.ID != targetID {
		if !actor.Admin {
			if edit.Username || edit.About || edit.Avatar || edit.Grade || edit.Password {
				return profileForbidden("only a mute may be applied to another account")
			}
			if !actor.Rights.MuteUsers || !edit.Mute {
				return profileForbidden("no right to mute other accounts")
			}
			return ProfileVerdict{Code: ProfileAllowed}
		}
		if edit.Password {
			return profileForbidden("even administrators cannot change passwords")
		}
		return ProfileVerdict{Code: ProfileAllowed}
	}

	if edit.Mute {
		return ProfileVerdict{Code: ProfileBadRequest, Reason: "cannot mute yourself"}
	}
	if actor.Admin {
		return ProfileVerdict{Code: ProfileAllowed}
	}
	if actor.Muted(now) {
		return profileForbidden("account is temporarily muted")
	}
	if edit.Grade {
		return profileForbidden("only administrators may change grades")
	}
	if edit.Password {
		if state.LastPasswordReset != nil {
			if retry := state.LastPasswordReset.Add(PasswordResetCooldown); retry.After(now) {
				return ProfileVerdict{Code: ProfileCooldown, Reason: "password was reset recently", RetryAt: retry}
			}
		}
	}
	if edit.Username {
		if !actor.Rights.ChangeUsername {
			return profileForbidden("changing the username is not permitted")
		}
		if state.LastUsernameReset != nil {
			if retry := state.LastUsernameReset.Add(UsernameResetCooldown); retry.After(now) {
				return ProfileVerdict{Code: ProfileCooldown, Reason: "username was reset recently", RetryAt: retry}
			}
		}
	}
	if edit.Avatar && !actor.Rights.ChangeAvatar {
		return profileForbidden("changing the avatar is not permitted")
	}
	if edit.About && !actor.Rights.ChangeAbout {
		return profileForbidden("changing the about text is not permitted")
	}
	return ProfileVerdict{Code: ProfileAllowed}
}
