// Package dataprovider maps generic CRUD actions onto a REST backend.
//
// A Provider turns an action (GET_LIST, GET_ONE, CREATE, UPDATE, DELETE), a
// resource name and its params into a Request descriptor, hands the
// descriptor to a Transport, and reshapes the backend's JSON into a Result
// whose records carry an "id" field in place of the backend primary key.
//
// # Usage
//
//	provider := dataprovider.New("https://api.example.com", transport)
//	res, err := provider.Execute(ctx, dataprovider.GetList, "users", dataprovider.Params{
//	    Pagination: &dataprovider.Pagination{Page: 1, PerPage: 10},
//	    Sort:       &dataprovider.Sort{Field: "name", Order: dataprovider.OrderASC},
//	})
//
// Params are expected to be validated by the caller. Missing fields required
// by an action are reported as ErrMalformedParams rather than corrected.
//
// The Transport owns everything on the wire: timeouts, retries, cancellation
// and authentication. Transport failures are returned from Execute unchanged.
package dataprovider
