// Package schema checks graphs before they are stored or executed.
//
// ValidateGraph reports every structural problem of a graph at once: dangling
// edges, unknown ports, duplicate port IDs and node config that does not match
// the per-type Schema in NodeConfigSchemas. Unreachable lists nodes no trigger
// leads to; those are warnings, not errors.
//
//	if err := schema.ValidateGraph(g); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        log.Println(e)
//	    }
//	}
package schema
