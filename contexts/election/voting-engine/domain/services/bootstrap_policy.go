package services

// BootstrapTrigger explains why an implicit promotion is allowed.
type BootstrapTrigger string

const (
	BootstrapNone            BootstrapTrigger = ""
	BootstrapConfiguredAdmin BootstrapTrigger = "configured_admin"
	BootstrapFirstVoter      BootstrapTrigger = "first_voter"
)

// ImplicitBootstrapTrigger decides whether an authenticating voter may be
// promoted while no admin exists. adminCount must be read live by the caller.
func ImplicitBootstrapTrigger(adminCount int64, voterEmail string, configuredAdmin string) BootstrapTrigger {
	if adminCount > 0 {
		return BootstrapNone
	}
	configured := NormalizeKey(configuredAdmin)
	if configured == "" {
		return BootstrapFirstVoter
	}
	if NormalizeKey(voterEmail) == configured {
		return BootstrapConfiguredAdmin
	}
	return BootstrapNone
}

// IsProtectedAdmin reports whether email is the configured bootstrap admin.
func IsProtectedAdmin(email string, configuredAdmin string) bool {
	configured := NormalizeKey(configuredAdmin)
	return configured != "" && NormalizeKey(email) == configured
}
