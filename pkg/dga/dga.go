// Package dga produces the synthetic domain names emitted by the traffic
// engine. Each strategy reproduces a distinct structural pattern seen in
// malicious DNS traffic (algorithmically generated labels, oversized labels,
// deep label chains) without any of the names being routable to anything
// outside the lab's resolvers.
package dga

import (
	"fmt"
	"math/rand"
	"strings"
)

// Strategy identifies the structural pattern used to build a domain.
type Strategy string

const (
	StrategyRandomLabel     Strategy = "random_label"
	StrategyOversizedLabel  Strategy = "oversized_label"
	StrategyManyLabels      Strategy = "many_labels"
	StrategyNumericOnly     Strategy = "numeric_only"
	StrategySingleCharChain Strategy = "single_char_chain"
	StrategyBenignNoise     Strategy = "benign_noise"
)

// maxDomainLength is the RFC 1035 limit on a full domain name. Generated
// names stay under it by truncating the offending label, never by aborting.
const maxDomainLength = 253

const (
	lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"
	digits     = "0123456789"
)

// Fixed roots for the suspicious-shape strategies. Real, well-known parents
// make the synthetic labels stand out the way DGA churn does in the wild.
const (
	oversizedRoot  = "example.com"
	manyLabelsRoot = "google.com"
	numericRoot    = "microsoft.com"
	singleCharRoot = "malicious.net"
)

// GeneratedDomain is one synthetic name plus the strategy that shaped it.
// Only Name reaches the probes; Strategy is kept for log enrichment.
type GeneratedDomain struct {
	Name     string
	Strategy Strategy
}

// Generator builds synthetic domains from a pseudo-random source and a pool
// of real-looking parent domains. Not safe for concurrent use; the scheduler
// owns it from a single goroutine.
type Generator struct {
	r            *rand.Rand
	validDomains []string
}

// NewGenerator returns a Generator over the given parent-domain pool.
func NewGenerator(r *rand.Rand, validDomains []string) (*Generator, error) {
	if len(validDomains) == 0 {
		return nil, fmt.Errorf("dga: valid-domain pool is empty")
	}
	return &Generator{r: r, validDomains: validDomains}, nil
}

// Generate produces a domain under the given strategy.
func (g *Generator) Generate(s Strategy) GeneratedDomain {
	switch s {
	case StrategyRandomLabel:
		return g.RandomLabel()
	case StrategyOversizedLabel:
		return g.OversizedLabel()
	case StrategyManyLabels:
		return g.ManyLabels()
	case StrategyNumericOnly:
		return g.NumericOnly()
	case StrategySingleCharChain:
		return g.SingleCharChain()
	default:
		return g.BenignNoise()
	}
}

// RandomLabel yields one 6-18 character lowercase alphanumeric label under a
// randomly chosen valid parent domain.
func (g *Generator) RandomLabel() GeneratedDomain {
	label := g.randomString(g.intBetween(6, 18), lowerAlnum)
	parent := g.validDomains[g.r.Intn(len(g.validDomains))]
	return GeneratedDomain{Name: join(label, parent), Strategy: StrategyRandomLabel}
}

// OversizedLabel yields an 80-character label under example.com. The label
// intentionally exceeds the 63-octet DNS label limit to exercise edge-case
// parsing in downstream log pipelines.
func (g *Generator) OversizedLabel() GeneratedDomain {
	label := g.randomString(80, lowerAlnum)
	return GeneratedDomain{Name: join(label, oversizedRoot), Strategy: StrategyOversizedLabel}
}

// ManyLabels yields a 10-17 deep chain of 6-18 character labels rooted under
// google.com, truncating labels as needed to stay within 253 characters.
func (g *Generator) ManyLabels() GeneratedDomain {
	count := g.intBetween(10, 17)
	labels := make([]string, 0, count)
	for i := 0; i < count; i++ {
		labels = append(labels, g.randomString(g.intBetween(6, 18), lowerAlnum))
	}
	return GeneratedDomain{Name: joinChain(labels, manyLabelsRoot), Strategy: StrategyManyLabels}
}

// NumericOnly yields a single 4-11 digit label under microsoft.com.
func (g *Generator) NumericOnly() GeneratedDomain {
	label := g.randomString(g.intBetween(4, 11), digits)
	return GeneratedDomain{Name: join(label, numericRoot), Strategy: StrategyNumericOnly}
}

// SingleCharChain yields 6-13 single-character labels under malicious.net.
func (g *Generator) SingleCharChain() GeneratedDomain {
	count := g.intBetween(6, 13)
	labels := make([]string, 0, count)
	for i := 0; i < count; i++ {
		labels = append(labels, g.randomString(1, lowerAlnum))
	}
	return GeneratedDomain{Name: joinChain(labels, singleCharRoot), Strategy: StrategySingleCharChain}
}

// BenignNoise yields a short ordinary-looking label under a valid parent
// domain. The bulk of the generated traffic uses this shape.
func (g *Generator) BenignNoise() GeneratedDomain {
	label := g.randomString(g.intBetween(3, 8), lowerAlnum)
	parent := g.validDomains[g.r.Intn(len(g.validDomains))]
	return GeneratedDomain{Name: join(label, parent), Strategy: StrategyBenignNoise}
}

func (g *Generator) randomString(n int, charset string) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(charset[g.r.Intn(len(charset))])
	}
	return b.String()
}

func (g *Generator) intBetween(min, max int) int {
	return min + g.r.Intn(max-min+1)
}

// join appends a single label to a parent, truncating the label if the full
// name would exceed the 253-character limit.
func join(label, parent string) string {
	budget := maxDomainLength - len(parent) - 1
	if len(label) > budget {
		label = label[:budget]
	}
	return label + "." + parent
}

// joinChain assembles a multi-label chain over a root, truncating the label
// that would push the name past 253 characters and dropping the remainder.
func joinChain(labels []string, root string) string {
	var b strings.Builder
	remaining := maxDomainLength - len(root) - 1
	for _, label := range labels {
		if len(label)+1 > remaining {
			if remaining > 1 {
				b.WriteString(label[:remaining-1])
				b.WriteByte('.')
			}
			break
		}
		b.WriteString(label)
		b.WriteByte('.')
		remaining -= len(label) + 1
	}
	b.WriteString(root)
	return b.String()
}
