// Package loadgen drives HTTP endpoints with a ramping population of
// virtual users (VUs).
//
// A run is described by a list of stages. Each stage moves the number of
// active VUs linearly from the previous target to its own target over its
// duration, so
//
//	[]Stage{{Duration: 5 * time.Second, Target: 500}, {Duration: 10 * time.Second, Target: 500}}
//
// ramps from 0 to 500 VUs over five seconds and holds 500 for ten more.
//
// Every VU loops: issue a GET, evaluate the checks against the response,
// then sleep for the think time. VUs removed during a ramp-down finish the
// request they are in before leaving. When the last stage ends the remaining
// VUs get GracefulStop to finish, after which their requests are cancelled.
//
// The Summary reports totals, check results, latency percentiles and
// fixed-width time buckets so the failure rate can be read against the
// number of active VUs over the run.
package loadgen
