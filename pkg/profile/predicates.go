package profile

import (
	"sort"
	"sync"
)

// Ordering says which direction of a custom constraint threshold is stricter.
type Ordering int

const (
	// OrderingNone means the predicate takes no threshold.
	OrderingNone Ordering = iota

	// OrderingHigherIsStricter means raising the threshold tightens the constraint.
	OrderingHigherIsStricter

	// OrderingLowerIsStricter means lowering the threshold tightens the constraint.
	OrderingLowerIsStricter
)

// Built-in predicate names.
const (
	PredicateNoNeuralExport     = "no_neural_export"
	PredicateNoCoerciveUptake   = "no_coercive_uptake"
	PredicateMinKnowledgeFactor = "min_knowledge_factor"
	PredicateMaxUncertainty     = "max_uncertainty"
	PredicateMinEffectiveMargin = "min_effective_margin"
	PredicateMaxEcoImpact       = "max_eco_impact"
)

var (
	predicatesMu sync.RWMutex
	predicates   = map[string]Ordering{
		PredicateNoNeuralExport:     OrderingNone,
		PredicateNoCoerciveUptake:   OrderingNone,
		PredicateMinKnowledgeFactor: OrderingHigherIsStricter,
		PredicateMaxUncertainty:     OrderingLowerIsStricter,
		PredicateMinEffectiveMargin: OrderingHigherIsStricter,
		PredicateMaxEcoImpact:       OrderingLowerIsStricter,
	}
)

// RegisterPredicate declares a predicate name so profiles may reference it.
// The evaluation function lives in the guard package.
func RegisterPredicate(name string, ordering Ordering) {
	predicatesMu.Lock()
	defer predicatesMu.Unlock()
	predicates[name] = ordering
}

// LookupPredicate returns the threshold ordering of a registered predicate.
func LookupPredicate(name string) (Ordering, bool) {
	predicatesMu.RLock()
	defer predicatesMu.RUnlock()
	o, ok := predicates[name]
	return o, ok
}

// PredicateNames returns every registered predicate name, sorted.
func PredicateNames() []string {
	predicatesMu.RLock()
	defer predicatesMu.RUnlock()

	names := make([]string, 0, len(predicates))
	for name := range predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
