package contract

import (
	"testing"

	"credtrace/model"
)

func TestBootstrapLedgerMakesFirstAdmin(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()

	has, err := h.cc.HasRole(h.as(verifierID), model.RoleAdmin, adminID)
	if err != nil {
		t.Fatalf("HasRole failed: %v", err)
	}
	if !has {
		t.Fatal("bootstrap caller should hold the admin role")
	}
}

func TestBootstrapLedgerCannotRerun(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()

	var err error
	h.tx(func() { err = h.cc.BootstrapLedger(h.as(institution1ID)) })
	if err == nil {
		t.Fatal("second BootstrapLedger should fail")
	}
}

func TestGrantRoleRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()

	var err error
	h.tx(func() { err = h.cc.GrantRole(h.as(verifierID), model.RoleInstitution, institution1ID) })
	wantKind(t, err, KindUnauthorized)

	has, err := h.cc.HasRole(h.as(verifierID), model.RoleInstitution, institution1ID)
	if err != nil {
		t.Fatalf("HasRole failed: %v", err)
	}
	if has {
		t.Fatal("unauthorized grant must not change state")
	}
}

func TestGrantRoleBootstrapOnlyCoversAdminRole(t *testing.T) {
	h := newHarness(t)

	// No admin exists yet; granting a non-admin role must still be refused.
	var err error
	h.tx(func() { err = h.cc.GrantRole(h.as(verifierID), model.RoleInstitution, institution1ID) })
	wantKind(t, err, KindUnauthorized)

	// Granting the first admin role works without prior authorization.
	h.tx(func() { err = h.cc.GrantRole(h.as(adminID), model.RoleAdmin, adminID) })
	if err != nil {
		t.Fatalf("bootstrap admin grant failed: %v", err)
	}
	has, err := h.cc.HasRole(h.as(verifierID), model.RoleAdmin, adminID)
	if err != nil {
		t.Fatalf("HasRole failed: %v", err)
	}
	if !has {
		t.Fatal("bootstrap admin grant should take effect")
	}
}

func TestGrantRoleIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()

	var err error
	h.tx(func() { err = h.cc.GrantRole(h.as(adminID), model.RoleInstitution, institution1ID) })
	if err != nil {
		t.Fatalf("first grant failed: %v", err)
	}
	h.tx(func() { err = h.cc.GrantRole(h.as(adminID), model.RoleInstitution, institution1ID) })
	if err != nil {
		t.Fatalf("repeated grant should succeed: %v", err)
	}

	has, err := h.cc.HasRole(h.as(verifierID), model.RoleInstitution, institution1ID)
	if err != nil {
		t.Fatalf("HasRole failed: %v", err)
	}
	if !has {
		t.Fatal("role should still be held after repeated grant")
	}
}

func TestRevokeRole(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()

	var err error
	h.tx(func() { err = h.cc.GrantRole(h.as(adminID), model.RoleInstitution, institution1ID) })
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	h.tx(func() { err = h.cc.RevokeRole(h.as(adminID), model.RoleInstitution, institution1ID) })
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	has, err := h.cc.HasRole(h.as(verifierID), model.RoleInstitution, institution1ID)
	if err != nil {
		t.Fatalf("HasRole failed: %v", err)
	}
	if has {
		t.Fatal("role should be gone after revoke")
	}

	// Revoking a role the identity does not hold succeeds with no change.
	h.tx(func() { err = h.cc.RevokeRole(h.as(adminID), model.RoleInstitution, institution1ID) })
	if err != nil {
		t.Fatalf("repeated revoke should succeed: %v", err)
	}
}

func TestRevokeRoleRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()

	var err error
	h.tx(func() { err = h.cc.RevokeRole(h.as(verifierID), model.RoleAdmin, adminID) })
	wantKind(t, err, KindUnauthorized)
}

func TestAdminCannotRevokeOwnAdminRole(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()

	var err error
	h.tx(func() { err = h.cc.RevokeRole(h.as(adminID), model.RoleAdmin, adminID) })
	wantKind(t, err, KindUnauthorized)
}

func TestUnknownRoleIsRejected(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()

	var err error
	h.tx(func() { err = h.cc.GrantRole(h.as(adminID), "registrar", institution1ID) })
	wantKind(t, err, KindInvalidInput)

	_, err = h.cc.HasRole(h.as(verifierID), "registrar", institution1ID)
	wantKind(t, err, KindInvalidInput)
}
