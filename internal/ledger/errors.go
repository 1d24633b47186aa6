package ledger

import "errors"

// Error kinds per §7, surfaced by internal/httpapi as the documented status
// codes.
var (
	ErrNoTransactions  = errors.New("ledger: no unconfirmed transactions")
	ErrContractNotFound = errors.New("ledger: contract not found")
	ErrIndexMismatch    = errors.New("ledger: index mismatch")
	ErrInvalidChain     = errors.New("ledger: invalid chain")
	ErrSchemaInvalid    = errors.New("ledger: schema invalid")
)
