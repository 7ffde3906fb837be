package sessionpool

import "github.com/dbsessionpool/dbsessionpool/internal/pool"

// SessionHandle is what a ServiceClient hands back for a newly created
// session: its opaque server-side identifier. A read/write session's
// transaction id comes separately, from BeginTransaction.
type SessionHandle = pool.SessionHandle

// ServiceClient is the external RPC collaborator spec §1 describes. The
// pool never constructs one; it is handed one at construction and never
// inspects anything about it beyond this contract. Every method must be
// context-cancellable. Errors are classified as retryable or fatal by the
// implementation (internal/xerrors.Retryable); the pool itself does not
// classify them.
type ServiceClient = pool.ServiceClient

// Kind distinguishes a plain read-only session from one carrying a
// pre-begun read/write transaction (spec §3).
type Kind = pool.Kind

const (
	ReadOnly  = pool.ReadOnly
	ReadWrite = pool.ReadWrite
)
