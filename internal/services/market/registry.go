package market

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

var ErrTooManySources = errors.New("too many liquidity sources")

// poolsCacheOwner is implemented by venues that sample from a pools cache.
type poolsCacheOwner interface {
	PoolsCache() *PoolsCache
}

type RegistryOpts struct {
	PoolsCache PoolsCacheOpts
	HTTPClient HTTPDoer
}

// Registry holds the venue descriptors of one chain. Each source owns a
// fixed bit of domain.SourceFlags, assigned in configuration order; MultiHop
// takes the bit after the last venue.
type Registry struct {
	chain    *config.ChainConfig
	venues   []Venue
	bySource map[domain.Source]Venue
	flags    map[domain.Source]domain.SourceFlags
	banned   map[domain.Source]map[common.Address]struct{}
	caches   []*PoolsCache
	overhead overheadTable

	intermediates []common.Address
	adjacency     map[common.Address][]common.Address
}

func NewRegistry(chain *config.ChainConfig, opts RegistryOpts) (*Registry, error) {
	if len(chain.Venues)+1 > domain.MaxSources {
		return nil, fmt.Errorf("%w: %d venues, at most %d", ErrTooManySources, len(chain.Venues), domain.MaxSources-1)
	}

	r := &Registry{
		chain:     chain,
		bySource:  make(map[domain.Source]Venue, len(chain.Venues)),
		flags:     make(map[domain.Source]domain.SourceFlags, len(chain.Venues)+1),
		banned:    make(map[domain.Source]map[common.Address]struct{}),
		adjacency: make(map[common.Address][]common.Address, len(chain.TokenAdjacency)),
	}
	env := venueEnv{chain: chain, cacheOpts: opts.PoolsCache, httpClient: opts.HTTPClient}

	for i, cfg := range chain.Venues {
		venue, err := newVenue(cfg, env)
		if err != nil {
			return nil, err
		}
		source := venue.Source()
		r.venues = append(r.venues, venue)
		r.bySource[source] = venue
		r.flags[source] = domain.SourceFlags(1) << uint(i)

		if len(cfg.BannedTokens) > 0 {
			set := make(map[common.Address]struct{}, len(cfg.BannedTokens))
			for _, t := range config.Addresses(cfg.BannedTokens) {
				set[t] = struct{}{}
			}
			r.banned[source] = set
		}
		if owner, ok := venue.(poolsCacheOwner); ok {
			r.caches = append(r.caches, owner.PoolsCache())
		}
	}
	r.flags[domain.SourceMultiHop] = domain.SourceFlags(1) << uint(len(chain.Venues))
	r.overhead = newOverheadTable(r.Flag)

	r.intermediates = config.Addresses(chain.DefaultIntermediateTokens)
	for token, neighbours := range chain.TokenAdjacency {
		r.adjacency[common.HexToAddress(token)] = config.Addresses(neighbours)
	}

	log.Info().Int("venues", len(r.venues)).Int("poolCaches", len(r.caches)).Msg("[VenueRegistry] registry built")
	return r, nil
}

func (r *Registry) Chain() *config.ChainConfig {
	return r.chain
}

// Sources lists the registered venues in bit order.
func (r *Registry) Sources() []domain.Source {
	out := make([]domain.Source, len(r.venues))
	for i, v := range r.venues {
		out[i] = v.Source()
	}
	return out
}

func (r *Registry) Venue(source domain.Source) (Venue, bool) {
	v, ok := r.bySource[source]
	return v, ok
}

// Flag is zero for unregistered sources.
func (r *Registry) Flag(source domain.Source) domain.SourceFlags {
	return r.flags[source]
}

func (r *Registry) Flags(sources []domain.Source) domain.SourceFlags {
	var out domain.SourceFlags
	for _, s := range sources {
		out |= r.flags[s]
	}
	return out
}

func (r *Registry) GasEstimate(source domain.Source, data domain.FillData) uint64 {
	if source == domain.SourceMultiHop {
		return fixedSourceGas[domain.SourceMultiHop]
	}
	if v, ok := r.bySource[source]; ok {
		return v.GasEstimate(data)
	}
	return 0
}

func (r *Registry) ExchangeOverhead(flags domain.SourceFlags) uint64 {
	return r.overhead.cost(flags)
}

func (r *Registry) BuildSettlementParams(fill *domain.CollapsedFill) domain.FillData {
	if v, ok := r.bySource[fill.Source]; ok {
		return v.BuildSettlementParams(fill)
	}
	return fill.FillData
}

// IsBanned reports whether source refuses to trade either token.
func (r *Registry) IsBanned(source domain.Source, takerToken, makerToken common.Address) bool {
	set, ok := r.banned[source]
	if !ok {
		return false
	}
	_, a := set[takerToken]
	_, b := set[makerToken]
	return a || b
}

// SampleOperations collects the sampling operations of sources for q. Banned
// pairs and unknown sources contribute nothing.
func (r *Registry) SampleOperations(sources []domain.Source, q SampleQuery) []*sampler.SourceOperation {
	var ops []*sampler.SourceOperation
	for _, source := range sources {
		v, ok := r.bySource[source]
		if !ok || r.IsBanned(source, q.TakerToken, q.MakerToken) {
			continue
		}
		ops = append(ops, v.BuildSampleOperations(q)...)
	}
	return ops
}

// IntermediateTokens returns the bridge tokens for a pair: the neighbours of
// both tokens followed by the chain defaults, without the pair itself and
// without repeats.
func (r *Registry) IntermediateTokens(takerToken, makerToken common.Address) []common.Address {
	candidates := make([]common.Address, 0, len(r.intermediates)+4)
	candidates = append(candidates, r.adjacency[makerToken]...)
	candidates = append(candidates, r.adjacency[takerToken]...)
	candidates = append(candidates, r.intermediates...)

	seen := make(map[common.Address]struct{}, len(candidates))
	out := make([]common.Address, 0, len(candidates))
	for _, t := range candidates {
		if t == takerToken || t == makerToken {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// FeeSources are the registered sources used to price tokens in native units.
func (r *Registry) FeeSources() []domain.Source {
	return r.registered(r.chain.FeeSources)
}

func (r *Registry) DefaultExcludedSources() []domain.Source {
	return r.registered(r.chain.DefaultExcludedSources)
}

func (r *Registry) registered(names []string) []domain.Source {
	out := make([]domain.Source, 0, len(names))
	for _, n := range names {
		if _, ok := r.bySource[domain.Source(n)]; ok {
			out = append(out, domain.Source(n))
		}
	}
	return out
}

// EnabledSources is every registered source not named in excluded. Names
// are matched case-insensitively.
func (r *Registry) EnabledSources(excluded []domain.Source) []domain.Source {
	skip := make(map[string]struct{}, len(excluded))
	for _, s := range excluded {
		skip[strings.ToLower(string(s))] = struct{}{}
	}
	out := make([]domain.Source, 0, len(r.venues))
	for _, v := range r.venues {
		if _, ok := skip[strings.ToLower(string(v.Source()))]; !ok {
			out = append(out, v.Source())
		}
	}
	return out
}

func (r *Registry) PoolsCaches() []*PoolsCache {
	return r.caches
}

func (r *Registry) PoolsCache(source domain.Source) (*PoolsCache, bool) {
	for _, c := range r.caches {
		if c.Source() == source {
			return c, true
		}
	}
	return nil, false
}

// Close stops every pools cache.
func (r *Registry) Close() {
	for _, c := range r.caches {
		c.Close()
	}
}
