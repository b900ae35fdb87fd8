// Package resolver maps opaque identifiers to human-readable names by
// fetching a remote dictionary on demand and caching bindings for the
// lifetime of the process.
package resolver

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/coachpo/meltica/errs"
	"github.com/coachpo/meltica/internal/idset"
	"github.com/coachpo/meltica/internal/telemetry"
)

const (
	component      = "resolver"
	httpTimeout    = 5 * time.Second
	refreshFlightKey = "refresh"
)

// dictionaryResponse is the JSON shape returned by the mapping endpoint (§6.1).
type dictionaryResponse struct {
	Mappings string `json:"mappings"`
}

// Resolver is a cached, fetch-on-miss identifier-to-name mapper. Once an
// identifier is bound to a name, the binding never changes within a process
// lifetime (§3).
type Resolver struct {
	mappingURL string
	client     *http.Client
	logger     *log.Logger
	metrics    *telemetry.Metrics

	mu    sync.RWMutex
	names map[string]string

	flight singleflight.Group
}

// New constructs a Resolver that fetches its dictionary from mappingURL.
func New(mappingURL string, logger *log.Logger, metrics *telemetry.Metrics) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Resolver{
		mappingURL: mappingURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
		metrics:    metrics,
		names:      make(map[string]string),
	}
}

// Get resolves id to its bound name, fetching the upstream dictionary at
// most once per concurrent wave of cache misses (§4.1).
func (r *Resolver) Get(ctx context.Context, id string) (string, error) {
	if err := idset.Require(component, id); err != nil {
		return "", err
	}

	if name, ok := r.lookup(id); ok {
		if r.metrics != nil {
			r.metrics.ResolverCacheHit()
		}
		return name, nil
	}

	if r.metrics != nil {
		r.metrics.ResolverCacheMiss()
	}

	if _, err, _ := r.flight.Do(refreshFlightKey, func() (any, error) {
		return nil, r.refresh(ctx)
	}); err != nil {
		return "", err
	}

	if name, ok := r.lookup(id); ok {
		return name, nil
	}
	return "", errs.New(component, errs.KindNotFound, errs.WithMessage("id unresolved after refresh: "+id))
}

func (r *Resolver) lookup(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

// refresh performs a single upstream fetch, validates the payload grammar,
// and merges newly-bound identifiers into the cache. It never partially
// merges a fetch that contains any validation failure.
func (r *Resolver) refresh(ctx context.Context) error {
	payload, err := r.fetchDictionary(ctx)
	if err != nil {
		return err
	}

	fresh, err := parseDictionary(payload)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range fresh {
		if _, bound := r.names[id]; bound {
			return errs.New(component, errs.KindDuplicateBinding, errs.WithMessage("id already bound: "+id))
		}
	}
	for id, name := range fresh {
		r.names[id] = name
	}
	r.logger.Printf("resolver: merged %d new binding(s)", len(fresh))
	return nil
}

func (r *Resolver) fetchDictionary(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.mappingURL, nil)
	if err != nil {
		return "", errs.New(component, errs.KindFetchFailed, errs.WithMessage("build request"), errs.WithCause(err))
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", errs.New(component, errs.KindFetchFailed, errs.WithMessage("mapping request failed"), errs.WithCause(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errs.New(component, errs.KindFetchFailed, errs.WithMessage("unexpected status"))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.New(component, errs.KindFetchFailed, errs.WithMessage("read body"), errs.WithCause(err))
	}

	var decoded dictionaryResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", errs.New(component, errs.KindInvalidResponse, errs.WithMessage("malformed mapping payload"), errs.WithCause(err))
	}
	if strings.TrimSpace(decoded.Mappings) == "" {
		return "", errs.New(component, errs.KindInvalidResponse, errs.WithMessage("empty mappings payload"))
	}
	return decoded.Mappings, nil
}

// parseDictionary validates and parses the "id:name" grammar described in
// §4.1, rejecting the whole payload on any malformed or duplicate entry.
func parseDictionary(payload string) (map[string]string, error) {
	out := make(map[string]string)
	for _, segment := range strings.Split(payload, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		rawID, rawName, ok := strings.Cut(segment, ":")
		if !ok {
			return nil, errs.New(component, errs.KindInvalidEntry, errs.WithMessage("missing ':' in entry: "+segment))
		}
		id := strings.TrimSpace(rawID)
		name := strings.TrimSpace(rawName)
		if id == "" || name == "" {
			return nil, errs.New(component, errs.KindInvalidEntry, errs.WithMessage("empty id or name in entry: "+segment))
		}
		if !idset.Valid(id) {
			return nil, errs.New(component, errs.KindInvalidID, errs.WithMessage("not a valid identifier: "+id))
		}
		if _, dup := out[id]; dup {
			return nil, errs.New(component, errs.KindDuplicateBinding, errs.WithMessage("id repeated within fetch: "+id))
		}
		out[id] = name
	}
	if len(out) == 0 {
		return nil, errs.New(component, errs.KindNoEntries, errs.WithMessage("no valid entries in mapping payload"))
	}
	return out, nil
}
