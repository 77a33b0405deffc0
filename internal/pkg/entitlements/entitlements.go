package entitlements

import "strings"

type Role string

const (
	RoleFree Role = "free"
	RolePro  Role = "pro"
	RoleMax  Role = "max"
)

// NormalizeRole maps arbitrary input to a known role, defaulting to free.
func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RolePro):
		return RolePro
	case string(RoleMax):
		return RoleMax
	default:
		return RoleFree
	}
}

// RoleRank orders roles so a higher entitlement never gets replaced by a lower
// one when two sources disagree.
func RoleRank(role Role) int {
	switch role {
	case RoleMax:
		return 2
	case RolePro:
		return 1
	default:
		return 0
	}
}

// IsPaid reports whether a role carries paid entitlements.
func IsPaid(role Role) bool {
	return RoleRank(role) > 0
}

// MaxOpenInvoices returns how many non-draft invoices a role may hold at once.
// 0 means unlimited.
func MaxOpenInvoices(role Role) int {
	switch role {
	case RoleMax, RolePro:
		return 0
	default:
		return 10
	}
}

// CanExport reports whether a role may use the document export endpoints.
func CanExport(role Role) bool {
	return IsPaid(role)
}
