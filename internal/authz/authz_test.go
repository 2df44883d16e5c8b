// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authz

import (
	"testing"

	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/session"
)

func TestDecide(t *testing.T) {
	admin := &api.User{ID: "a1", Role: "admin"}
	doctor := &api.User{ID: "d1", Role: "doctor"}
	patient := &api.User{ID: "p1", Role: "patient"}

	tests := []struct {
		name     string
		state    session.State
		identity *api.User
		required RoleSet
		want     Decision
	}{
		// Pending never renders and never redirects.
		{"pending renders nothing", session.StatePending, nil, nil, DecisionWait},
		{"pending ignores role requirements", session.StatePending, nil, RoleSet{RoleAdmin}, DecisionWait},

		// Anonymous always goes to login.
		{"anonymous redirects to login", session.StateAnonymous, nil, nil, DecisionRedirectLogin},
		{"anonymous redirects even for open role set", session.StateAnonymous, nil, RoleSet{}, DecisionRedirectLogin},

		// Authenticated with no role requirement renders.
		{"authenticated open route", session.StateAuthenticated, patient, nil, DecisionAllow},
		{"authenticated empty role set", session.StateAuthenticated, doctor, RoleSet{}, DecisionAllow},

		// Role mismatch goes home, never to login: the user is
		// authenticated, just not authorized for this view.
		{"patient denied admin route", session.StateAuthenticated, patient, RoleSet{RoleAdmin}, DecisionRedirectHome},
		{"doctor denied admin route", session.StateAuthenticated, doctor, RoleSet{RoleAdmin}, DecisionRedirectHome},
		{"admin allowed admin route", session.StateAuthenticated, admin, RoleSet{RoleAdmin}, DecisionAllow},
		{"doctor allowed multi-role route", session.StateAuthenticated, doctor, RoleSet{RoleDoctor, RoleAdmin}, DecisionAllow},

		// Broken data degrades safely.
		{"authenticated nil identity treated as anonymous", session.StateAuthenticated, nil, nil, DecisionRedirectLogin},
		{"unknown role authorizes nothing", session.StateAuthenticated, &api.User{Role: "superuser"}, nil, DecisionRedirectHome},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.state, tc.identity, tc.required); got != tc.want {
				t.Errorf("Decide(%v, %v, %v) = %v, want %v",
					tc.state, tc.identity, tc.required, got, tc.want)
			}
		})
	}
}

func TestDecide_Idempotent(t *testing.T) {
	// The gate is pure: the same inputs give the same answer every time.
	patient := &api.User{ID: "p1", Role: "patient"}
	for i := 0; i < 3; i++ {
		if got := Decide(session.StatePending, patient, RoleSet{RoleAdmin}); got != DecisionWait {
			t.Fatalf("call %d: Decide() = %v, want wait", i, got)
		}
	}
}

func TestRoutes(t *testing.T) {
	if IsProtected(RouteLogin) || IsProtected(RouteRegister) || IsProtected(RouteOTP) {
		t.Error("public routes must not be protected")
	}
	for _, r := range []Route{RouteDashboard, RouteRecords, RouteAdminUsers} {
		if !IsProtected(r) {
			t.Errorf("route %q should be protected", r)
		}
	}

	// Admin directory is admin-only; dashboard and records are open to
	// any authenticated role.
	if RequiredRoles(RouteAdminUsers).Contains(RolePatient) {
		t.Error("patient allowed on admin-users route")
	}
	if !RequiredRoles(RouteAdminUsers).Contains(RoleAdmin) {
		t.Error("admin denied on admin-users route")
	}
	if !RequiredRoles(RouteDashboard).Contains(RolePatient) {
		t.Error("patient denied on dashboard")
	}
	if !RequiredRoles(RouteRecords).Contains(RoleDoctor) {
		t.Error("doctor denied on records")
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"admin", "doctor", "patient"} {
		if _, ok := ParseRole(valid); !ok {
			t.Errorf("ParseRole(%q) rejected valid role", valid)
		}
	}
	for _, invalid := range []string{"", "Admin", "root", "nurse"} {
		if _, ok := ParseRole(invalid); ok {
			t.Errorf("ParseRole(%q) accepted unknown role", invalid)
		}
	}
}

func TestCanManageRecords(t *testing.T) {
	if CanManageRecords(RolePatient) {
		t.Error("patient must not manage records")
	}
	if !CanManageRecords(RoleDoctor) || !CanManageRecords(RoleAdmin) {
		t.Error("doctor and admin must manage records")
	}
}
