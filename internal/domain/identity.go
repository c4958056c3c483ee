package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is an opaque, comparable participant identifier. The exchange
// never interprets it beyond equality checks; syntax validation happens once
// at the API boundary via ParseIdentity.
type Identity string

// ParseIdentity validates raw as a hex (EVM-style) address and returns the
// normalized lower-case form. Mixed-case input is accepted; the stored form
// is always lower-case so that map keys and SQL comparisons agree.
func ParseIdentity(raw string) (Identity, error) {
	s := strings.TrimSpace(raw)
	if s == "" || !common.IsHexAddress(s) {
		return "", ErrInvalidIdentity
	}
	return Identity(strings.ToLower(common.HexToAddress(s).Hex())), nil
}

// Funds is the value attached to a call, in integer units of a denomination.
type Funds struct {
	Denom  string
	Amount int64
}

// CallInfo carries the authenticated caller and any attached funds into an
// engine operation, the way the host delivers them alongside the request.
type CallInfo struct {
	Caller Identity
	Funds  []Funds
}

// Attached returns the amount attached in the given denomination, summing
// duplicate entries.
func (c CallInfo) Attached(denom string) int64 {
	var total int64
	for _, f := range c.Funds {
		if f.Denom == denom {
			total += f.Amount
		}
	}
	return total
}

// Transfer is a single queued transfer instruction. The engine only describes
// transfers; executing them atomically with the state commit is the ledger's
// contract.
type Transfer struct {
	To     Identity
	Denom  string
	Amount int64
}
