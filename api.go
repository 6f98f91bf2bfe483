package onequery

import (
	"fmt"

	c "github.com/lifeomic/one-query/codec"
)

// Codec re-exports codec.Codec for option literals.
type Codec = c.Codec

// Options tune a cache client. Only Scope and Store are required; the rest
// have sensible defaults.
type Options struct {
	// Required
	Scope string // namespace isolating this client from others sharing the store, e.g. "api:prod"
	Store Store

	Codec    Codec  // nil => codec.JSON{}
	Logger   Logger // nil => NopLogger
	Hooks    Hooks  // nil => NopHooks
	Disabled bool   // default false (enabled); disabled clients read as all-miss and write nothing
}

// Client is the cache update engine for one scope. Point reads and writes go
// through the generic Get/Set functions; matcher-driven bulk operations are
// methods. A Client is safe for concurrent use as long as its Store is.
type Client struct {
	scope   string
	store   Store
	codec   Codec
	log     Logger
	hooks   Hooks
	enabled bool
}

func New(opts Options) (*Client, error) {
	if opts.Scope == "" {
		return nil, fmt.Errorf("onequery: scope is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("onequery: store is required")
	}

	cl := &Client{
		scope:   opts.Scope,
		store:   opts.Store,
		enabled: !opts.Disabled,
	}

	// defaults
	cl.codec = coalesce[Codec](opts.Codec, c.JSON{})
	cl.log = coalesce[Logger](opts.Logger, NopLogger{})
	cl.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	return cl, nil
}

// Scope returns the namespace this client addresses.
func (cl *Client) Scope() string { return cl.scope }

func (cl *Client) Enabled() bool { return cl.enabled }
