package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quotefeed/model"
	"quotefeed/reference"
	"quotefeed/utils"

	"github.com/samber/lo"
)

var errEmptySnapshot = errors.New("provider returned no prices")

// Fallback walks an ordered provider chain and returns the first non-empty
// snapshot verbatim. Later stages run only after every earlier stage failed,
// so the aggregator never gets hit while the exchanges are healthy. Each
// stage runs at most once per call.
type Fallback struct {
	providers []reference.Provider
}

func NewFallback(providers ...reference.Provider) *Fallback {
	return &Fallback{providers: providers}
}

// Name lists the chain, primary first.
func (f *Fallback) Name() string {
	names := lo.Map(f.providers, func(p reference.Provider, _ int) string {
		return p.Name()
	})
	return strings.Join(names, ">")
}

// FetchPrices tries each stage in priority order. An empty snapshot without
// an error still counts as a stage failure, since it carries no usable data.
// When the whole chain fails the caller gets one AllFailedError with every
// distinct failure kind seen this cycle.
func (f *Fallback) FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error) {
	var kinds []FetchKind
	var errs []error

	for _, p := range f.providers {
		snapshot, err := p.FetchPrices(ctx, symbols)
		if err == nil && len(snapshot) > 0 {
			return snapshot, nil
		}
		if err == nil {
			err = &FetchError{Provider: p.Name(), Kind: KindMalformed, Err: errEmptySnapshot}
		}
		utils.Log.Warnf("[FALLBACK] %s failed: %s", p.Name(), err.Error())

		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			kinds = appendKind(kinds, fetchErr.Kind)
		} else {
			kinds = appendKind(kinds, KindUnreachable)
		}
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}
	return nil, &AllFailedError{Kinds: kinds, Errs: errs}
}

// FetchOne resolves a single symbol through the chain.
func (f *Fallback) FetchOne(ctx context.Context, symbol model.Symbol) (model.PricePoint, error) {
	snapshot, err := f.FetchPrices(ctx, []model.Symbol{symbol})
	if err != nil {
		return model.PricePoint{}, err
	}
	point, ok := snapshot[symbol.Canonical]
	if !ok {
		return model.PricePoint{}, &FetchError{
			Provider: f.Name(),
			Kind:     KindMalformed,
			Err:      fmt.Errorf("no price for %s", symbol.Canonical),
		}
	}
	return point, nil
}

func appendKind(kinds []FetchKind, kind FetchKind) []FetchKind {
	for _, k := range kinds {
		if k == kind {
			return kinds
		}
	}
	return append(kinds, kind)
}
