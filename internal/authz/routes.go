// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authz

// Route identifies one portal view.
type Route string

const (
	// Public routes
	RouteLogin    Route = "login"
	RouteRegister Route = "register"
	RouteVerify   Route = "verify-registration"
	RouteOTP      Route = "otp"

	// Protected routes
	RouteDashboard  Route = "dashboard"
	RouteRecords    Route = "records"
	RouteAdminUsers Route = "admin-users"
)

// HomeRoute is the default authenticated landing view, the target of
// DecisionRedirectHome.
const HomeRoute = RouteDashboard

// protectedRoutes maps each protected route to the roles allowed to
// reach it. An empty set means any authenticated role.
var protectedRoutes = map[Route]RoleSet{
	RouteDashboard:  {},
	RouteRecords:    {},
	RouteAdminUsers: {RoleAdmin},
}

// IsProtected reports whether the route requires an authenticated session.
func IsProtected(r Route) bool {
	_, ok := protectedRoutes[r]
	return ok
}

// RequiredRoles returns the role set guarding a protected route.
func RequiredRoles(r Route) RoleSet {
	return protectedRoutes[r]
}
