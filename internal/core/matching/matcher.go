package matching

import (
	"strings"
	"time"

	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub006/internal/core/gateway"
)

const (
	// MatchWindow is the maximum distance between a deposit's creation and
	// the gateway-reported payment time.
	MatchWindow = 2 * time.Hour

	// MinScore is the eligibility threshold. An amount match within the
	// time window reaches it on its own.
	MinScore = 100

	amountPoints  = 100
	timePoints    = 50
	identityBonus = 30

	// UnmatchedSampleCap bounds how many unmatched gateway successes a
	// sweep report carries for manual review.
	UnmatchedSampleCap = 20
)

// Candidate is a pending deposit without a gateway reference, paired with
// its owning account so payer identity can be compared.
type Candidate struct {
	Txn     domain.Transaction
	Account domain.Account
}

// Match links one gateway success to one deposit.
type Match struct {
	Txn      domain.Transaction
	Provider gateway.ProviderTxn
	Score    float64
}

// Result is the outcome of matching one gateway's listing against the
// candidate pool.
type Result struct {
	Matches           []Match
	UnmatchedProvider []gateway.ProviderTxn
}

// Matcher links unreferenced pending deposits to gateway-reported
// successes. Deterministic: candidates are consumed in encounter order and
// each deposit or gateway transaction participates in at most one match.
type Matcher struct{}

func NewMatcher() *Matcher { return &Matcher{} }

// FindMatches scores every remaining candidate against each gateway
// transaction in turn. The highest-scoring eligible candidate wins; ties
// go to the first one seen. A matched candidate leaves the pool
// immediately.
func (m *Matcher) FindMatches(providerTxns []gateway.ProviderTxn, candidates []Candidate) Result {
	var result Result

	consumed := make(map[int]bool, len(candidates))

	for _, provider := range providerTxns {
		bestIdx := -1
		bestScore := 0.0

		for i, candidate := range candidates {
			if consumed[i] {
				continue
			}
			score := Score(provider, candidate)
			if score < MinScore {
				continue
			}
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			if len(result.UnmatchedProvider) < UnmatchedSampleCap {
				result.UnmatchedProvider = append(result.UnmatchedProvider, provider)
			}
			continue
		}

		consumed[bestIdx] = true
		result.Matches = append(result.Matches, Match{
			Txn:      candidates[bestIdx].Txn,
			Provider: provider,
			Score:    bestScore,
		})
	}

	return result
}

// Score rates one candidate against one gateway transaction. Amount and
// time proximity are both mandatory gates; failing either yields zero.
// Payer identity adds a bonus so it breaks ties between otherwise equal
// candidates but never qualifies a candidate by itself.
func Score(provider gateway.ProviderTxn, candidate Candidate) float64 {
	if !domain.SameAmount(provider.Amount, candidate.Txn.Amount) {
		return 0
	}

	delta := provider.PaidAt.Sub(candidate.Txn.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	if delta > MatchWindow {
		return 0
	}

	score := float64(amountPoints)

	timeScore := timePoints * (1 - float64(delta)/float64(MatchWindow))
	if timeScore > 0 {
		score += timeScore
	}

	if identityMatches(provider, candidate.Account) {
		score += identityBonus
	}

	return score
}

func identityMatches(provider gateway.ProviderTxn, account domain.Account) bool {
	if provider.PayerEmail != "" && account.Email != "" &&
		strings.EqualFold(provider.PayerEmail, account.Email) {
		return true
	}
	if provider.PayerPhone != "" && account.Phone != "" &&
		normalizePhone(provider.PayerPhone) == normalizePhone(account.Phone) {
		return true
	}
	return false
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
