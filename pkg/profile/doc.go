// Package profile defines policy profiles: versioned, replace-only sets of
// jurisdiction-specific constraints that every evaluation is checked against.
//
// A profile is a structured document (YAML or JSON) with a name, a version,
// an authority label, an effective date and its constraints:
//
//   - forbidden capabilities
//   - numeric envelope rules (ceiling, warn band, monotone flag)
//   - per module class ceilings
//   - a non-derogable minimum rights set
//   - a consent policy
//   - custom constraints evaluated through a registered predicate table
//
// # Loading
//
// Parse is the document loader:
//
//	p, err := profile.Parse(data)
//	if err != nil {
//	    var verr *profile.ProfileValidationError
//	    if errors.As(err, &verr) {
//	        for _, problem := range verr.Problems {
//	            log.Println(problem)
//	        }
//	    }
//	}
//
// # Supersession
//
// Profiles are never edited in place. A profile is replaced by a successor
// that is at least as strict on every shared constraint; CheckSupersede
// reports every relaxation as a *PolicyDowngradeError.
package profile
