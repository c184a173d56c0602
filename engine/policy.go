package engine

import (
	"fmt"
	"strings"
)

// GatewayPolicy decides what happens to a target when the translator fails
// on one of its keys.
type GatewayPolicy int

const (
	// SkipTarget stops translating the current target and saves whatever
	// was translated before the failure.
	SkipTarget GatewayPolicy = iota
	// KeepSource stores the untranslated base value and moves on.
	KeepSource
	// SkipKey leaves the key out of the target and moves on.
	SkipKey
)

var policyNames = []string{"skip-target", "keep-source", "skip-key"}

func (p GatewayPolicy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return fmt.Sprintf("GatewayPolicy(%d)", int(p))
	}
	return policyNames[p]
}

// ParseGatewayPolicy parses a policy name such as "keep-source".
func ParseGatewayPolicy(s string) (GatewayPolicy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range policyNames {
		if n == name {
			return GatewayPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown error policy %q (want one of %s)", s, strings.Join(policyNames, ", "))
}

// Set implements pflag.Value.
func (p *GatewayPolicy) Set(s string) error {
	v, err := ParseGatewayPolicy(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Type implements pflag.Value.
func (p *GatewayPolicy) Type() string { return "policy" }

// PolicyNames returns the accepted policy names.
func PolicyNames() []string {
	return append([]string(nil), policyNames...)
}
