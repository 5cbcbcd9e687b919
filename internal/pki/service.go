package pki

import "strings"

const wildcardPrefix = "*."

// Service is a requested service name resolved into certificate fields and
// an output file basename.
type Service struct {
	Name       string
	CommonName string
	SANs       []string
	Basename   string
}

// ParseService normalizes a service name. "*.example.com" becomes CN
// "example.com", SANs ["*.example.com", "example.com"] and basename
// "wildcard.example.com". Other names are used unchanged.
func ParseService(name string) Service {
	if domain, ok := strings.CutPrefix(name, wildcardPrefix); ok {
		return Service{
			Name:       name,
			CommonName: domain,
			SANs:       []string{name, domain},
			Basename:   "wildcard." + domain,
		}
	}

	return Service{
		Name:       name,
		CommonName: name,
		SANs:       []string{name},
		Basename:   name,
	}
}

// IsWildcard reports whether the service was requested as "*.<domain>".
func (s Service) IsWildcard() bool {
	return strings.HasPrefix(s.Name, wildcardPrefix)
}

// IssueService issues a leaf for a requested service name, applying wildcard
// normalization.
func (i *Issuer) IssueService(ca *CA, svc Service) (*Leaf, error) {
	return i.IssueLeaf(ca, svc.CommonName, svc.SANs)
}
