// Package acl evaluates a Route's ordered allow/deny rule list against a
// peer IP address (spec §4.A step 2).
package acl

import "github.com/briarcliff/relaygate/internal/model"

// Evaluate walks rules in order and returns the decision of the first
// decisive rule. ALLOW_ALL and DENY_ALL are always decisive. ALLOW/DENY
// with an ip are decisive only on an exact literal match against peerIP.
// An empty or entirely indecisive rule list defaults to allow, so the
// function is total for every rule set and every peer IP.
func Evaluate(rules []model.AclRule, peerIP string) bool {
	for _, r := range rules {
		switch r.Kind {
		case model.AllowAll:
			return true
		case model.DenyAll:
			return false
		case model.Allow:
			if r.IP == peerIP {
				return true
			}
		case model.Deny:
			if r.IP == peerIP {
				return false
			}
		}
	}
	return true
}
