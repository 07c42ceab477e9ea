// Package validator builds declarative validation from small Rule values.
//
// Each rule pairs a Check func with the ValidationError reported when the
// check fails. Apply evaluates rules in order and returns every failure as a
// ValidationErrors, which implements error:
//
//	err := validator.Apply(
//		validator.ValidEmail("email", email),
//		validator.InList("ttl", ttl, allowed),
//		validator.MaxNum("file", size, maxSize),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//		for _, field := range verrs.Fields() {
//			// verrs.Get(field)
//		}
//	}
//
// Rules are stateless and safe for concurrent use.
package validator
