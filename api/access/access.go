// Package access implements the permission rules shared by every mutating
// endpoint: mod edit/read/delete checks, batch filtering of mod ids,
// authorship transfer rules and the profile edit policy.
//
// The evaluator is deliberately free of database access. Callers load an
// Identity snapshot plus the authorship/publicity facts for the target mods
// and pass everything by value, so every rule combination is testable
// without a database.
package access

import (
	"time"
)

// Decision is the outcome of a policy check.
type Decision int

const (
	// Unauthenticated means no valid session was presented (HTTP 401).
	Unauthenticated Decision = iota
	// Deny means the session is valid but the policy refuses (HTTP 403).
	Deny
	// Allow means the caller may proceed.
	Allow
)

// Rights is the flat capability set of an account. Admin supersedes all of
// these; see Identity.
type Rights struct {
	WriteComments          bool `json:"write_comments"`
	SetReactions           bool `json:"set_reactions"`
	CreateReactions        bool `json:"create_reactions"`
	MuteUsers              bool `json:"mute_users"`
	PublishMods            bool `json:"publish_mods"`
	ChangeAuthorshipMods   bool `json:"change_authorship_mods"`
	ChangeSelfMods         bool `json:"change_self_mods"`
	ChangeMods             bool `json:"change_mods"`
	DeleteSelfMods         bool `json:"delete_self_mods"`
	DeleteMods             bool `json:"delete_mods"`
	CreateForums           bool `json:"create_forums"`
	ChangeAuthorshipForums bool `json:"change_authorship_forums"`
	ChangeSelfForums       bool `json:"change_self_forums"`
	ChangeForums           bool `json:"change_forums"`
	DeleteSelfForums       bool `json:"delete_self_forums"`
	DeleteForums           bool `json:"delete_forums"`
	ChangeUsername         bool `json:"change_username"`
	ChangeAbout            bool `json:"change_about"`
	ChangeAvatar           bool `json:"change_avatar"`
	VoteForReputation      bool `json:"vote_for_reputation"`
}

// Identity is the snapshot of the acting account the evaluator sees.
type Identity struct {
	ID        int64
	Admin     bool
	MuteUntil *time.Time
	Rights    Rights
}

// Muted reports whether the account is under an active mute.
func (id Identity) Muted(now time.Time) bool {
	return id.MuteUntil != nil && id.MuteUntil.After(now)
}

// Membership is an account's authorship relation to one mod.
type Membership int

const (
	// MembershipNone: no authorship row.
	MembershipNone Membership = iota
	// MembershipMember: collaborator row with owner=false.
	MembershipMember
	// MembershipOwner: the single owner=true row.
	MembershipOwner
)

// Publicity levels of a mod.
const (
	PublicityCataloged  = 0 // fully public, listed in the catalog
	PublicityUnlisted   = 1 // public but not indexed
	PublicityRestricted = 2 // visible to admins and authors only
)

// ModFacts are the per-mod inputs to a read/edit decision.
type ModFacts struct {
	ID         int64
	Membership Membership
	Publicity  int
}

// CanEditMod decides edit access to a single mod.
//
// Precedence: admin allows; active mute denies; authorship requires the
// change_self_mods flag and ownership; no authorship falls through to the
// generic change_mods flag.
func CanEditMod(actor Identity, m Membership, now time.Time) bool {
	if actor.Admin {
		return true
	}
	if actor.Muted(now) {
		return false
	}
	if m != MembershipNone {
		return actor.Rights.ChangeSelfMods && m == MembershipOwner
	}
	return actor.Rights.ChangeMods
}

// CanDeleteMod mirrors CanEditMod with the delete flag pair.
func CanDeleteMod(actor Identity, m Membership, now time.Time) bool {
	if actor.Admin {
		return true
	}
	if actor.Muted(now) {
		return false
	}
	if m != MembershipNone {
		return actor.Rights.DeleteSelfMods && m == MembershipOwner
	}
	return actor.Rights.DeleteMods
}

// CanReadMod decides read access. Mute does not block reads; any authorship
// row grants read; without one the mod must be cataloged or unlisted. The
// generic change/delete flags never gate read. A nil actor is an anonymous
// caller.
func CanReadMod(actor *Identity, facts ModFacts) bool {
	if facts.Publicity <= PublicityUnlisted {
		return true
	}
	if actor == nil {
		return false
	}
	return actor.Admin || facts.Membership != MembershipNone
}

// CanPublishMod decides whether the account may upload a new mod.
func CanPublishMod(actor Identity, now time.Time) bool {
	if actor.Admin {
		return true
	}
	if actor.Muted(now) {
		return false
	}
	return actor.Rights.PublishMods
}

// FilterMods evaluates every mod independently and returns the ids the
// actor may access, in input order. Denied ids are dropped silently so
// listing endpoints do not leak the existence of restricted mods. A nil
// actor with edit=true always yields an empty result.
func FilterMods(actor *Identity, mods []ModFacts, edit bool, now time.Time) []int64 {
	allowed := make([]int64, 0, len(mods))
	if edit && actor == nil {
		return allowed
	}
	for _, facts := range mods {
		if edit {
			if CanEditMod(*actor, facts.Membership, now) {
				allowed = append(allowed, facts.ID)
			}
		} else if CanReadMod(actor, facts) {
			allowed = append(allowed, facts.ID)
		}
	}
	return allowed
}

// TransferRequest describes one edit-authors call: adding/updating
// (Adding=true) or removing (Adding=false) the Target account on a mod.
type TransferRequest struct {
	Target int64
	Adding bool
}

// CanTransferAuthorship decides whether the actor may perform the requested
// authorship change on a mod where the actor holds membership m.
//
// Owners manage the whole roster but may not remove themselves without
// naming a replacement in the same call (a mod must not be orphaned).
// Plain collaborators may only remove themselves. Non-collaborators need
// the change_authorship_mods flag.
func CanTransferAuthorship(actor Identity, m Membership, req TransferRequest, now time.Time) bool {
	if actor.Admin {
		return true
	}
	if actor.Muted(now) {
		return false
	}
	switch m {
	case MembershipOwner:
		if req.Target == actor.ID && !req.Adding {
			return false
		}
		return true
	case MembershipMember:
		return req.Target == actor.ID && !req.Adding
	default:
		return actor.Rights.ChangeAuthorshipMods
	}
}
