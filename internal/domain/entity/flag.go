package entity

// FlagVariant is the value of the farm data-source feature flag.
type FlagVariant string

const (
	// FlagDefault reads farm data from chain.
	FlagDefault FlagVariant = "default"
	// FlagAPI reads public farm data from the alternate farms API.
	FlagAPI FlagVariant = "api"
)

// IsAPI reports whether the alternate data-source API is active.
func (v FlagVariant) IsAPI() bool {
	return v == FlagAPI
}

// OrDefault maps the empty variant to FlagDefault.
func (v FlagVariant) OrDefault() FlagVariant {
	if v == "" {
		return FlagDefault
	}
	return v
}
