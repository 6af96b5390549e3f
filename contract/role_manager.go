package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"credtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var rmLogger = flogging.MustGetLogger("credtrace.rolemanager")

// roleGrantObjectType is the composite key object type for role memberships.
// Attributes: role, identity.
const roleGrantObjectType = "RoleGrant"

// RoleManager is the authoritative role-membership store. All mutating entry
// points of the contract consult it before touching any other state.
type RoleManager struct {
	Ctx contractapi.TransactionContextInterface
}

// NewRoleManager creates a RoleManager bound to the transaction context.
func NewRoleManager(ctx contractapi.TransactionContextInterface) *RoleManager {
	return &RoleManager{Ctx: ctx}
}

func (rm *RoleManager) getCurrentTxTimestamp() (time.Time, error) {
	ts, err := rm.Ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

func (rm *RoleManager) createRoleGrantKey(role, identity string) (string, error) {
	return rm.Ctx.GetStub().CreateCompositeKey(roleGrantObjectType, []string{role, identity})
}

// GetCallerID returns the invoking client's enrollment identity. This is the
// identity role grants and institution addresses are keyed on.
func (rm *RoleManager) GetCallerID() (string, error) {
	clientIdentity := rm.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	return id, nil
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// HasRole reports whether the identity currently holds the role. Pure lookup,
// no side effects, no authorization required.
func (rm *RoleManager) HasRole(role, identity string) (bool, error) {
	roleLower := normalizeRole(role)
	if !model.ValidRoles[roleLower] {
		return false, Errf(KindInvalidInput, "unknown role '%s'", role)
	}
	if strings.TrimSpace(identity) == "" {
		return false, Errf(KindInvalidInput, "identity cannot be empty")
	}
	grantKey, err := rm.createRoleGrantKey(roleLower, identity)
	if err != nil {
		return false, fmt.Errorf("failed to create role grant key for '%s'/'%s': %w", roleLower, identity, err)
	}
	grantBytes, err := rm.Ctx.GetStub().GetState(grantKey)
	if err != nil {
		return false, fmt.Errorf("ledger error checking role '%s' for '%s': %w", roleLower, identity, err)
	}
	return grantBytes != nil, nil
}

// RequireRole fails with Unauthorized unless the caller holds the role.
func (rm *RoleManager) RequireRole(role string) error {
	callerID, err := rm.GetCallerID()
	if err != nil {
		return fmt.Errorf("failed to get caller identity for role check: %w", err)
	}
	has, err := rm.HasRole(role, callerID)
	if err != nil {
		return fmt.Errorf("error checking role '%s' for caller '%s': %w", role, callerID, err)
	}
	if !has {
		return Errf(KindUnauthorized, "identity '%s' does not hold required role '%s'", callerID, role)
	}
	return nil
}

// RequireAdmin fails with Unauthorized unless the caller holds the admin role.
func (rm *RoleManager) RequireAdmin() error {
	return rm.RequireRole(model.RoleAdmin)
}

// AnyAdminExists reports whether at least one admin grant is on the ledger.
// Used to decide whether a grant of the admin role runs in bootstrap mode.
func (rm *RoleManager) AnyAdminExists() (bool, error) {
	iterator, err := rm.Ctx.GetStub().GetStateByPartialCompositeKey(roleGrantObjectType, []string{model.RoleAdmin})
	if err != nil {
		return false, fmt.Errorf("failed to query admin grants: %w", err)
	}
	defer iterator.Close()
	return iterator.HasNext(), nil
}

// Grant adds a role membership. Admin-only, except that the very first admin
// grant is allowed with no admin present (bootstrap). Granting an already-held
// role succeeds without touching state; the returned flag says whether a write
// happened.
func (rm *RoleManager) Grant(role, identity string) (bool, error) {
	roleLower := normalizeRole(role)
	if !model.ValidRoles[roleLower] {
		return false, Errf(KindInvalidInput, "unknown role '%s'", role)
	}
	if strings.TrimSpace(identity) == "" {
		return false, Errf(KindInvalidInput, "identity cannot be empty")
	}

	callerID, err := rm.GetCallerID()
	if err != nil {
		return false, fmt.Errorf("failed to get caller identity for Grant: %w", err)
	}

	anyAdmin, err := rm.AnyAdminExists()
	if err != nil {
		return false, fmt.Errorf("failed to check for existing admins during Grant: %w", err)
	}
	if anyAdmin {
		if err := rm.RequireAdmin(); err != nil {
			return false, err
		}
	} else if roleLower != model.RoleAdmin {
		// Only the first admin grant may bypass authorization.
		return false, Errf(KindUnauthorized, "no admin exists yet; bootstrap must grant the admin role first")
	} else {
		rmLogger.Infof("No admin exists. Bootstrap: caller '%s' grants admin to '%s'.", callerID, identity)
	}

	held, err := rm.HasRole(roleLower, identity)
	if err != nil {
		return false, err
	}
	if held {
		rmLogger.Infof("Role '%s' already held by '%s'. No state change.", roleLower, identity)
		return false, nil
	}

	if err := rm.putGrant(roleLower, identity, callerID); err != nil {
		return false, err
	}
	rmLogger.Infof("Role '%s' granted to '%s' by '%s'.", roleLower, identity, callerID)
	return true, nil
}

// Revoke removes a role membership. Admin-only and idempotent; revoking a role
// the identity does not hold succeeds with no state change.
func (rm *RoleManager) Revoke(role, identity string) (bool, error) {
	roleLower := normalizeRole(role)
	if !model.ValidRoles[roleLower] {
		return false, Errf(KindInvalidInput, "unknown role '%s'", role)
	}
	if strings.TrimSpace(identity) == "" {
		return false, Errf(KindInvalidInput, "identity cannot be empty")
	}

	if err := rm.RequireAdmin(); err != nil {
		return false, err
	}
	callerID, err := rm.GetCallerID()
	if err != nil {
		return false, fmt.Errorf("failed to get caller identity for Revoke: %w", err)
	}
	if roleLower == model.RoleAdmin && identity == callerID {
		return false, Errf(KindUnauthorized, "admins cannot revoke their own admin role")
	}

	held, err := rm.HasRole(roleLower, identity)
	if err != nil {
		return false, err
	}
	if !held {
		rmLogger.Infof("Role '%s' not held by '%s'. No state change.", roleLower, identity)
		return false, nil
	}

	grantKey, err := rm.createRoleGrantKey(roleLower, identity)
	if err != nil {
		return false, fmt.Errorf("failed to create role grant key for Revoke: %w", err)
	}
	if err := rm.Ctx.GetStub().DelState(grantKey); err != nil {
		return false, fmt.Errorf("failed to delete role grant '%s'/'%s': %w", roleLower, identity, err)
	}
	rmLogger.Infof("Role '%s' revoked from '%s' by '%s'.", roleLower, identity, callerID)
	return true, nil
}

// putGrant writes a membership record without authorization checks. Callers
// must have authorized already; RegisterInstitution also uses it to bind the
// institution role to a freshly registered address in the same transaction.
func (rm *RoleManager) putGrant(role, identity, grantedBy string) error {
	now, err := rm.getCurrentTxTimestamp()
	if err != nil {
		return err
	}
	grant := model.RoleGrant{
		ObjectType: roleGrantObjectType,
		Role:       role,
		Identity:   identity,
		GrantedBy:  grantedBy,
		GrantedAt:  now,
	}
	grantBytes, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to marshal role grant for '%s'/'%s': %w", role, identity, err)
	}
	grantKey, err := rm.createRoleGrantKey(role, identity)
	if err != nil {
		return fmt.Errorf("failed to create role grant key for '%s'/'%s': %w", role, identity, err)
	}
	if err := rm.Ctx.GetStub().PutState(grantKey, grantBytes); err != nil {
		return fmt.Errorf("failed to save role grant '%s'/'%s': %w", role, identity, err)
	}
	return nil
}
