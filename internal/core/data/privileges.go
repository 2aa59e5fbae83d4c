package data

// Privileges is a set of flags describing what an account may do.
type Privileges uint32

const (
	PrivilegeNormal Privileges = 1 << iota
	PrivilegeVerified
	PrivilegeSupporter
	PrivilegeModerator
	PrivilegeAdministrator
	PrivilegeDeveloper
	PrivilegeTournamentStaff
	PrivilegeRestricted
)

// Has reports whether every flag in required is set.
func (p Privileges) Has(required Privileges) bool {
	return p&required == required
}
